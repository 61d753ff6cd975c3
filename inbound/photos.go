package inbound

import (
	"context"
	"errors"
	"fmt"

	"wmsinbound/models"
)

// missingSlots returns the titles of required slots short of photos.
func missingSlots(progress []models.SlotProgress) []string {
	var missing []string
	for _, p := range progress {
		if !p.Satisfied() {
			missing = append(missing, p.Title)
		}
	}
	return missing
}

// AddPhoto records an uploaded photo for one evidence slot. The first photo
// on an ARRIVED receipt moves it to PHOTO_REQUIRED.
func (s *Service) AddPhoto(ctx context.Context, actor Actor, receiptID, slotKey, storagePath string) (*models.InboundPhoto, error) {
	var errs []error
	errs = append(errs, actor.validate())
	if slotKey == "" {
		errs = append(errs, invalid("slot_key", "is required"))
	}
	if storagePath == "" {
		errs = append(errs, invalid("storage_path", "is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status.Final() && !actor.Elevated {
		return nil, ErrAlreadyProcessed
	}

	progress, err := s.receipts.PhotoProgress(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load photo slots: %w", err)
	}
	var slot *models.SlotProgress
	for i := range progress {
		if progress[i].SlotKey == slotKey {
			slot = &progress[i]
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slotKey)
	}

	photo := &models.InboundPhoto{
		ReceiptID:   receiptID,
		SlotID:      slot.ID,
		StoragePath: storagePath,
		UploadedBy:  actor.ID,
		UploadedAt:  s.now(),
	}
	if err := s.receipts.AddPhoto(ctx, photo, finalGuard(actor)); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, err
		}
		return nil, fmt.Errorf("add photo: %w", err)
	}

	if _, err := s.receipts.AdvanceStatus(ctx, receiptID,
		[]models.ReceiptStatus{models.StatusArrived}, models.StatusPhotoRequired); err != nil {
		return nil, fmt.Errorf("advance receipt status: %w", err)
	}

	s.recorder.Event(receiptID, models.EventPhotoUploaded, actor.ID, map[string]any{
		"slot_key":     slotKey,
		"photo_id":     photo.ID,
		"storage_path": storagePath,
	})
	return photo, nil
}
