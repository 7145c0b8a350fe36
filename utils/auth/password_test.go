package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "battery staple"), ErrPasswordMismatch)
}

func TestHashPasswordEnforcesLength(t *testing.T) {
	var policy *PolicyError

	_, err := HashPassword("short")
	require.ErrorAs(t, err, &policy)
	assert.Equal(t, []string{"The password must be at least 8 characters."}, policy.Problems)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1))
	require.ErrorAs(t, err, &policy)
	assert.Equal(t, []string{"The password may not be greater than 72 bytes."}, policy.Problems)
}

func TestPasswordProblems(t *testing.T) {
	cases := []struct {
		name     string
		password string
		email    string
		want     int
	}{
		{"acceptable", "reading-room-7", "clerk@lms.test", 0},
		{"too short", "abc", "clerk@lms.test", 1},
		{"same as email", "Clerk@LMS.test", "clerk@lms.test", 1},
		{"same as mailbox name", "librarian", "librarian@lms.test", 1},
		{"no email given", "librarian", "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, PasswordProblems(tc.password, tc.email), tc.want)
		})
	}
}

func TestSetHashCost(t *testing.T) {
	t.Cleanup(func() { SetHashCost(DefaultHashCost) })

	SetHashCost(bcrypt.MinCost)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	// out of range values keep the current cost
	SetHashCost(99)
	hash, err = HashPassword("correct horse")
	require.NoError(t, err)
	cost, err = bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
