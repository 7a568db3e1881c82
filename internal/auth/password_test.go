package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	// Minimum cost keeps the test fast; the policy cost is exercised in
	// production config.
	svc := NewPasswordServiceWithCost(4)

	hash, err := svc.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.NoError(t, svc.VerifyPassword(hash, "Sup3rSecret"))
	assert.Error(t, svc.VerifyPassword(hash, "WrongPassword1"))
}

func TestPasswordService_RejectsEmpty(t *testing.T) {
	svc := NewPasswordServiceWithCost(4)

	_, err := svc.HashPassword("")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Abcdef12", false},
		{"too short", "Ab1", true},
		{"no uppercase", "abcdef12", true},
		{"no lowercase", "ABCDEF12", true},
		{"no digit", "Abcdefgh", true},
		{"long valid", "CorrectHorse7BatteryStaple", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IsValidPassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
