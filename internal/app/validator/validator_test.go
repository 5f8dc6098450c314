package validator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinabler/DBS401/internal/app/models"
)

func strPtr(s string) *string { return &s }

func TestValidateOptionalFieldsAcceptAbsentInput(t *testing.T) {
	kinds := []FieldKind{KindName, KindUsername, KindAddress, KindPhone, KindHobbies, KindGender, KindAvatarPath}
	for _, kind := range kinds {
		res := Validate(nil, kind)
		assert.True(t, res.OK, "nil input must be accepted for %s", kind)
		assert.False(t, res.Present)
	}
}

func TestValidateEmptyStringAccepted(t *testing.T) {
	res := Validate(strPtr("   "), KindName)
	assert.True(t, res.OK)
	assert.True(t, res.Present)
	assert.Equal(t, "", res.Value)
}

func TestValidateFieldPatterns(t *testing.T) {
	tests := []struct {
		name  string
		kind  FieldKind
		input string
		ok    bool
	}{
		{"valid name", KindName, "John Doe", true},
		{"name with punctuation", KindName, "O'Brien, Jr.", true},
		{"name too short", KindName, "J", false},
		{"name with digits", KindName, "John 42", false},
		{"name with script tag", KindName, "<script>alert(1)</script>", false},
		{"valid username", KindUsername, "valid_user1", true},
		{"username too short", KindUsername, "ab", false},
		{"username with dash", KindUsername, "bad-user", false},
		{"valid address", KindAddress, "42 Main St. #3/B", true},
		{"address too short", KindAddress, "abc", false},
		{"address with semicolon", KindAddress, "1 Main St; DROP TABLE users", false},
		{"valid phone", KindPhone, "+84 (28) 3823-4567", true},
		{"phone too short", KindPhone, "123", false},
		{"phone with letters", KindPhone, "12345abcde", false},
		{"valid hobbies", KindHobbies, "reading, cycling and chess", true},
		{"hobbies with quote", KindHobbies, "rock 'n roll", true},
		{"gender male", KindGender, "male", true},
		{"gender mixed case", KindGender, "Female", true},
		{"gender prefer not to say", KindGender, "Prefer Not To Say", true},
		{"gender arbitrary", KindGender, "attack", false},
		{"valid avatar path", KindAvatarPath, "/uploads/profiles/profile_12_1700000000.png", true},
		{"avatar path traversal", KindAvatarPath, "/uploads/profiles/../../etc/passwd", false},
		{"avatar outside uploads", KindAvatarPath, "/etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(strPtr(tt.input), tt.kind)
			if tt.ok {
				assert.True(t, res.OK, "expected %q to pass %s", tt.input, tt.kind)
			} else {
				assert.False(t, res.OK, "expected %q to fail %s", tt.input, tt.kind)
				assert.Contains(t, res.Message, string(tt.kind))
			}
		})
	}
}

func TestValidateTrimsValue(t *testing.T) {
	res := Validate(strPtr("  John Doe  "), KindName)
	require.True(t, res.OK)
	assert.Equal(t, "John Doe", res.Value)
}

func TestValidateDate(t *testing.T) {
	t.Run("absent accepted", func(t *testing.T) {
		res := ValidateDate(nil, "birthday")
		assert.True(t, res.OK)
		assert.False(t, res.Present)
	})

	t.Run("empty accepted", func(t *testing.T) {
		res := ValidateDate(strPtr(""), "birthday")
		assert.True(t, res.OK)
	})

	t.Run("unparsable rejected", func(t *testing.T) {
		res := ValidateDate(strPtr("not-a-date"), "birthday")
		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "invalid birthday format")
	})

	t.Run("before 1900 rejected with range", func(t *testing.T) {
		res := ValidateDate(strPtr("1850-01-01"), "birthday")
		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "1900")
		assert.Contains(t, res.Message, fmt.Sprintf("%d", time.Now().Year()+10))
	})

	t.Run("too far in future rejected", func(t *testing.T) {
		future := fmt.Sprintf("%d-01-01", time.Now().Year()+11)
		res := ValidateDate(strPtr(future), "birthday")
		assert.False(t, res.OK)
	})

	t.Run("valid date parsed", func(t *testing.T) {
		res := ValidateDate(strPtr("1990-06-15"), "birthday")
		require.True(t, res.OK)
		assert.Equal(t, 1990, res.Value.Year())
		assert.Equal(t, time.June, res.Value.Month())
	})
}

func TestValidateUserID(t *testing.T) {
	id, err := ValidateUserID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = ValidateUserID("")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ValidateUserID("12; DROP TABLE users")
	require.Error(t, err)

	_, err = ValidateUserID("-1")
	require.Error(t, err)
}

func TestValidateLogin(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		_, err := ValidateLogin("", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("short username and password get generic message", func(t *testing.T) {
		_, err := ValidateLogin("ab", "short")
		require.Error(t, err)
		assert.Contains(t, err.Error(), GenericLoginMessage)
		assert.NotContains(t, err.Error(), "username format")
	})

	t.Run("password too long", func(t *testing.T) {
		_, err := ValidateLogin("valid_user1", strings.Repeat("x", 129))
		require.Error(t, err)
		assert.Contains(t, err.Error(), GenericLoginMessage)
	})

	t.Run("valid credentials pass trimmed", func(t *testing.T) {
		data, err := ValidateLogin("valid_user1", "longenoughpassword")
		require.NoError(t, err)
		assert.Equal(t, "valid_user1", data.Username)
		assert.Equal(t, "longenoughpassword", data.Password)
	})

	t.Run("sql injection username rejected generically", func(t *testing.T) {
		_, err := ValidateLogin("admin' OR '1'='1", "longenoughpassword")
		require.Error(t, err)
		assert.Contains(t, err.Error(), GenericLoginMessage)
	})
}

func TestValidateProfile(t *testing.T) {
	t.Run("collects every failure", func(t *testing.T) {
		_, err := ValidateProfile(ProfileInput{
			UserID:   "abc",
			FullName: strPtr("X"),
			Phone:    strPtr("bad-phone!"),
			Birthday: strPtr("1850-01-01"),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Contains(t, err.Error(), "invalid user ID format")
		assert.Contains(t, err.Error(), "invalid name format")
		assert.Contains(t, err.Error(), "invalid phone number format")
		assert.Contains(t, err.Error(), "birthday must be between")
		assert.Contains(t, err.Error(), "; ")
	})

	t.Run("birthday out of range cited", func(t *testing.T) {
		_, err := ValidateProfile(ProfileInput{
			UserID:   "12",
			FullName: strPtr("John Doe"),
			Birthday: strPtr("1850-01-01"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "birthday must be between 1900")
	})

	t.Run("only supplied fields are included", func(t *testing.T) {
		update, err := ValidateProfile(ProfileInput{
			UserID:   "7",
			FullName: strPtr("  Jane Roe "),
			Gender:   strPtr("female"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), update.UserID)
		require.NotNil(t, update.FullName)
		assert.Equal(t, "Jane Roe", *update.FullName)
		require.NotNil(t, update.Gender)
		assert.Equal(t, "female", *update.Gender)
		assert.Nil(t, update.Address)
		assert.Nil(t, update.Phone)
		assert.Nil(t, update.Hobbies)
		assert.Nil(t, update.Birthday)
		assert.Nil(t, update.AvatarURL)
	})

	t.Run("full valid payload", func(t *testing.T) {
		update, err := ValidateProfile(ProfileInput{
			UserID:    "12",
			FullName:  strPtr("John Doe"),
			Address:   strPtr("42 Main St. #3"),
			Phone:     strPtr("+1 (555) 123-4567"),
			Hobbies:   strPtr("reading and chess"),
			Birthday:  strPtr("1990-06-15"),
			Gender:    strPtr("male"),
			AvatarURL: strPtr("/uploads/profiles/profile_12_1700000000.png"),
		})
		require.NoError(t, err)
		require.NotNil(t, update.Birthday)
		assert.Equal(t, 1990, update.Birthday.Year())
	})
}
