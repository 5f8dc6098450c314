// Package validator implements field-level and composite input validation
// for the user directory. Every raw request value passes through here before
// it reaches a service or repository.
package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kinabler/DBS401/internal/app/models"
)

// FieldKind names a category of input with its own validation pattern.
type FieldKind string

const (
	KindUserID     FieldKind = "user ID"
	KindName       FieldKind = "name"
	KindUsername   FieldKind = "username"
	KindAddress    FieldKind = "address"
	KindPhone      FieldKind = "phone number"
	KindHobbies    FieldKind = "hobbies"
	KindGender     FieldKind = "gender"
	KindAvatarPath FieldKind = "avatar URL"
)

var patterns = map[FieldKind]*regexp.Regexp{
	KindUserID:     regexp.MustCompile(`^\d+$`),
	KindName:       regexp.MustCompile(`^[A-Za-z\s.,'-]{2,100}$`),
	KindUsername:   regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`),
	KindAddress:    regexp.MustCompile(`^[A-Za-z0-9\s.,#'/-]{5,200}$`),
	KindPhone:      regexp.MustCompile(`^[\d+()\s-]{7,20}$`),
	KindHobbies:    regexp.MustCompile(`^[A-Za-z0-9\s.,'-]{0,500}$`),
	KindGender:     regexp.MustCompile(`(?i)^(male|female|other|prefer not to say)?$`),
	KindAvatarPath: regexp.MustCompile(`^(/uploads/profiles/[A-Za-z0-9/_.-]+)?$`),
}

// Password length bounds for login; enforced outside the pattern table so the
// raw password never runs through a regex.
const (
	minPasswordLen = 8
	maxPasswordLen = 128
)

// Birthday window accepted for date fields.
const minDateYear = 1900

// GenericLoginMessage is returned for every login validation failure so the
// response never reveals which check rejected the attempt.
const GenericLoginMessage = "Invalid username or password"

// Result is the outcome of validating a single field.
type Result struct {
	OK      bool
	Present bool   // input was supplied (non-nil)
	Value   string // trimmed value when OK
	Message string
}

// Validate checks one optional field against its kind's pattern.
// A nil input is accepted unchanged; a trimmed-empty input is accepted empty.
func Validate(raw *string, kind FieldKind) Result {
	if raw == nil {
		return Result{OK: true}
	}

	value := strings.TrimSpace(*raw)
	if value == "" {
		return Result{OK: true, Present: true}
	}

	pattern, ok := patterns[kind]
	if !ok {
		return Result{Present: true, Message: fmt.Sprintf("unknown field kind %q", kind)}
	}
	if !pattern.MatchString(value) {
		return Result{Present: true, Message: fmt.Sprintf("invalid %s format", kind)}
	}

	return Result{OK: true, Present: true, Value: value}
}

// DateResult is the outcome of validating a date field.
type DateResult struct {
	OK      bool
	Present bool
	Value   time.Time
	Message string
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// ValidateDate parses an optional calendar date and checks it falls within
// [Jan 1 1900, Dec 31 of current year+10].
func ValidateDate(raw *string, fieldName string) DateResult {
	if raw == nil {
		return DateResult{OK: true}
	}

	value := strings.TrimSpace(*raw)
	if value == "" {
		return DateResult{OK: true, Present: true}
	}

	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return DateResult{Present: true, Message: fmt.Sprintf("invalid %s format", fieldName)}
	}

	maxYear := time.Now().Year() + 10
	minDate := time.Date(minDateYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate := time.Date(maxYear, time.December, 31, 23, 59, 59, 0, time.UTC)
	if parsed.Before(minDate) || parsed.After(maxDate) {
		return DateResult{Present: true, Message: fmt.Sprintf("%s must be between %d and %d", fieldName, minDateYear, maxYear)}
	}

	return DateResult{OK: true, Present: true, Value: parsed}
}

// ValidateUserID checks a required numeric identifier and returns it parsed.
func ValidateUserID(raw string) (int64, error) {
	id, msg := validateUserID(raw)
	if msg != "" {
		return 0, fmt.Errorf("%s: %w", msg, models.ErrValidation)
	}
	return id, nil
}

func validateUserID(raw string) (int64, string) {
	if strings.TrimSpace(raw) == "" {
		return 0, "user ID is required"
	}

	res := Validate(&raw, KindUserID)
	if !res.OK {
		return 0, res.Message
	}

	id, err := strconv.ParseInt(res.Value, 10, 64)
	if err != nil {
		return 0, "invalid user ID format"
	}
	return id, ""
}

// LoginData is the sanitized output of a successful login validation.
type LoginData struct {
	Username string
	Password string
}

// ValidateLogin checks login credentials. Every failure yields the same
// generic message so the caller cannot probe which field was wrong.
func ValidateLogin(username, password string) (LoginData, error) {
	if username == "" || password == "" {
		return LoginData{}, fmt.Errorf("username and password are required: %w", models.ErrValidation)
	}

	res := Validate(&username, KindUsername)
	if !res.OK || !res.Present || res.Value == "" {
		return LoginData{}, fmt.Errorf("%s: %w", GenericLoginMessage, models.ErrValidation)
	}

	trimmedPassword := strings.TrimSpace(password)
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return LoginData{}, fmt.Errorf("%s: %w", GenericLoginMessage, models.ErrValidation)
	}

	return LoginData{Username: res.Value, Password: trimmedPassword}, nil
}

// ProfileInput carries the raw profile fields from a request. Nil means the
// field was absent from the payload.
type ProfileInput struct {
	UserID    string
	FullName  *string
	Address   *string
	Phone     *string
	Hobbies   *string
	Birthday  *string
	Gender    *string
	AvatarURL *string
}

// ValidateProfile runs every field independently, collects all rejection
// messages and, when everything passes, returns a sanitized update containing
// only the fields that were supplied.
func ValidateProfile(input ProfileInput) (models.ProfileUpdate, error) {
	var errs []string
	update := models.ProfileUpdate{}

	userID, msg := validateUserID(input.UserID)
	if msg != "" {
		errs = append(errs, msg)
	} else {
		update.UserID = userID
	}

	fields := []struct {
		raw  *string
		kind FieldKind
		dst  **string
	}{
		{input.FullName, KindName, &update.FullName},
		{input.Address, KindAddress, &update.Address},
		{input.Phone, KindPhone, &update.Phone},
		{input.Hobbies, KindHobbies, &update.Hobbies},
		{input.Gender, KindGender, &update.Gender},
		{input.AvatarURL, KindAvatarPath, &update.AvatarURL},
	}
	for _, f := range fields {
		res := Validate(f.raw, f.kind)
		if !res.OK {
			errs = append(errs, res.Message)
			continue
		}
		if res.Present {
			value := res.Value
			*f.dst = &value
		}
	}

	birthday := ValidateDate(input.Birthday, "birthday")
	if !birthday.OK {
		errs = append(errs, birthday.Message)
	} else if birthday.Present && !birthday.Value.IsZero() {
		value := birthday.Value
		update.Birthday = &value
	}

	if len(errs) > 0 {
		return models.ProfileUpdate{}, fmt.Errorf("%s: %w", strings.Join(errs, "; "), models.ErrValidation)
	}

	return update, nil
}
