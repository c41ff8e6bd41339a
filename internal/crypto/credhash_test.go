package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	first := Hash("123456", TagStudentPIN, salt)
	second := Hash("123456", TagStudentPIN, salt)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashSaltSensitivity(t *testing.T) {
	saltA, err := NewSalt()
	require.NoError(t, err)
	saltB, err := NewSalt()
	require.NoError(t, err)

	assert.NotEqual(t, Hash("123456", TagStudentPIN, saltA), Hash("123456", TagStudentPIN, saltB))
}

func TestHashTagDomainSeparation(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	student := Hash("123456", TagStudentPIN, salt)
	teacher := Hash("123456", TagTeacherPIN, salt)
	password := Hash("123456", TagTeacherPassword, salt)

	assert.NotEqual(t, student, teacher)
	assert.NotEqual(t, teacher, password)
}

func TestVerify(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	hash := Hash("123456", TagStudentPIN, salt)

	assert.True(t, Verify("123456", TagStudentPIN, salt, hash))
	assert.False(t, Verify("654321", TagStudentPIN, salt, hash))
	assert.False(t, Verify("123456", TagTeacherPIN, salt, hash))
}

func TestVerifyEmptyHashNeverMatches(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	assert.False(t, Verify("", TagStudentPIN, salt, ""))
	assert.False(t, Verify("123456", TagStudentPIN, salt, ""))
}
