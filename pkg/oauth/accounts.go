package oauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/agora-board/agora/pkg/auth"
	"github.com/agora-board/agora/pkg/storage"
)

// AccountStore is the slice of the user store the login flows need.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*storage.User, error)
	GetByUsername(ctx context.Context, username string) (*storage.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*storage.User, error)
	UpdateRefreshToken(ctx context.Context, userID int64, token *string) error
}

const maxUsernameLength = 20

// resolveAccount maps a provider profile onto a local account. The lookup
// key is the normalized email; a miss creates a new account with a
// collision-free username and a random password.
func resolveAccount(ctx context.Context, store AccountStore, providerName string, profile *Profile) (*storage.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, flowErr("email_not_provided", nil)
	}

	existing, err := store.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account by email: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	username, err := allocateUsername(ctx, store, usernameBase(providerName, profile, email))
	if err != nil {
		return nil, err
	}

	password, err := auth.RandomPassword()
	if err != nil {
		return nil, fmt.Errorf("generate account password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash account password: %w", err)
	}

	user, err := store.Create(ctx, username, email, hash)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return user, nil
}

// usernameBase picks the seed for a new account's username: display name,
// then the email local part, then the provider id.
func usernameBase(providerName string, profile *Profile, email string) string {
	base := strings.TrimSpace(profile.Name)
	if base == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			base = email[:at]
		}
	}
	if base == "" {
		base = profile.ExternalID
	}
	if base == "" {
		base = providerName + "_user"
	}
	return truncateRunes(base, maxUsernameLength)
}

// allocateUsername finds the first free name in the sequence
// base, base1, base2, ...
func allocateUsername(ctx context.Context, store AccountStore, base string) (string, error) {
	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := store.GetByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("lookup username %q: %w", candidate, err)
		}
		if taken == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
