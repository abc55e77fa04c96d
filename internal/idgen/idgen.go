// Package idgen generates short, URL-safe ids backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ReminderPrefix = "rem-"
	TriggerPrefix  = "trg-"
)

// Alphabet is the character set of the random part.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters, excluding the prefix.
var Length = 12

func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

func ReminderID() (string, error) {
	return GenerateWithPrefix(ReminderPrefix)
}

func TriggerID() (string, error) {
	return GenerateWithPrefix(TriggerPrefix)
}
