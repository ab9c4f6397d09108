package service

import (
	"regexp"
	"strings"

	"github.com/jacentio/roster/store"
)

// emailPattern is a simplified RFC 5322 check: local-part@domain with basic
// character restrictions.
var emailPattern = regexp.MustCompile(
	`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

func validateRegister(in RegisterInput) map[string]string {
	errs := map[string]string{}

	switch {
	case strings.TrimSpace(in.Email) == "":
		errs["email"] = "Field is required"
	case !emailPattern.MatchString(strings.TrimSpace(in.Email)):
		errs["email"] = "Invalid email format"
	}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "Field is required"
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		errs["idempotencyKey"] = "Field is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateUpdateProfile(in UpdateProfileInput) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(in.IdempotencyKey) == "" {
		errs["idempotencyKey"] = "Field is required"
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		errs["name"] = "Name cannot be empty"
	}
	if in.Name == nil && in.Metadata == nil {
		errs["request"] = "At least one of name or metadata must be provided"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStatus(status string) map[string]string {
	if strings.TrimSpace(status) == "" {
		return map[string]string{"status": "Field is required"}
	}
	if !store.Status(status).Valid() {
		return map[string]string{"status": "Status must be one of: active, deleted, disabled"}
	}
	return nil
}

// normalizeLimit applies the default and bounds-checks the page size.
func normalizeLimit(limit int32) (int32, map[string]string) {
	if limit == 0 {
		return defaultLimit, nil
	}
	if limit < 1 || limit > maxLimit {
		return 0, map[string]string{"limit": "Limit must be between 1 and 100"}
	}
	return limit, nil
}
