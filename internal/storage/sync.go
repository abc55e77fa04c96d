package storage

import (
	"context"
	"fmt"
)

// Sync moves reminders from local into remote under userID. Reminders whose
// id already exists remotely for that user are not copied again. Each local
// reminder is deleted once it is present remotely. Sync stops at the first
// error and returns the number of reminders copied so far.
func Sync(ctx context.Context, local, remote Storage, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("sync requires a user id")
	}

	localReminders, err := local.ListReminders(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list local reminders: %w", err)
	}
	if len(localReminders) == 0 {
		return 0, nil
	}

	remoteReminders, err := remote.ListReminders(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list remote reminders: %w", err)
	}
	existing := make(map[string]bool, len(remoteReminders))
	for _, r := range remoteReminders {
		existing[r.ID] = true
	}

	copied := 0
	for _, r := range localReminders {
		if !existing[r.ID] {
			up := r.Clone()
			up.UserID = userID
			if err := remote.CreateReminder(ctx, up); err != nil {
				return copied, fmt.Errorf("failed to copy reminder %s: %w", r.ID, err)
			}
			copied++
		}
		if err := local.DeleteReminder(ctx, r.ID); err != nil {
			return copied, fmt.Errorf("failed to remove local reminder %s: %w", r.ID, err)
		}
	}
	return copied, nil
}
