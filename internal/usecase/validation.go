package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	maxEmailLen   = 254
	maxDetailsLen = 500
	maxFieldLen   = 100
)

// Campos reconhecidos do formulário. Qualquer outro nome (fora os custom
// declarados na config) é descartado em silêncio, não rejeitado —
// compatibilidade com versões futuras do widget.
var baseFields = map[string]bool{
	"email":   true,
	"name":    true,
	"company": true,
	"phone":   true,
	"details": true,
	"source":  true,
}

type ValidationConfig struct {
	CustomFields      []string
	MaxCustomFields   int
	MaxCustomValueLen int
}

// ValidateSubmission normaliza a submissão crua e devolve o draft pronto
// para persistir, ou TODOS os campos inválidos de uma vez.
func ValidateSubmission(raw map[string]string, cfg ValidationConfig) (*entity.LeadDraft, ValidationErrors) {
	var errs ValidationErrors

	declared := make(map[string]bool, len(cfg.CustomFields))
	for _, f := range cfg.CustomFields {
		declared[f] = true
	}

	draft := &entity.LeadDraft{}

	email := strings.TrimSpace(raw["email"])
	if email == "" {
		errs = append(errs, ValidationError{"email", "is required"})
	} else if len(email) > maxEmailLen {
		errs = append(errs, ValidationError{"email", fmt.Sprintf("must not exceed %d characters", maxEmailLen)})
	} else if !isValidEmail(email) {
		errs = append(errs, ValidationError{"email", "is invalid"})
	}
	draft.Email = strings.ToLower(email)

	for field, dst := range map[string]*string{
		"name":    &draft.Name,
		"company": &draft.Company,
		"phone":   &draft.Phone,
		"details": &draft.Details,
		"source":  &draft.Source,
	} {
		value, present := raw[field]
		if !present {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			errs = append(errs, ValidationError{field, "must be non-empty when present"})
			continue
		}
		max := maxFieldLen
		if field == "details" {
			max = maxDetailsLen
		}
		if len(trimmed) > max {
			errs = append(errs, ValidationError{field, fmt.Sprintf("must not exceed %d characters", max)})
			continue
		}
		*dst = Sanitize(trimmed)
	}

	custom := make(map[string]string)
	for field, value := range raw {
		if baseFields[field] || !declared[field] {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			errs = append(errs, ValidationError{field, "must be non-empty when present"})
			continue
		}
		if len(trimmed) > cfg.MaxCustomValueLen {
			errs = append(errs, ValidationError{field, fmt.Sprintf("must not exceed %d characters", cfg.MaxCustomValueLen)})
			continue
		}
		custom[field] = Sanitize(trimmed)
	}
	if len(custom) > cfg.MaxCustomFields {
		errs = append(errs, ValidationError{"custom_fields", fmt.Sprintf("max %d custom fields", cfg.MaxCustomFields)})
	} else if len(custom) > 0 {
		draft.CustomFields = custom
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return draft, nil
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// ParseAddress aceita "Nome <a@b.com>"; o formulário manda só o endereço.
	return addr.Address == email && strings.Contains(email, ".")
}

var (
	scriptTagRe    = regexp.MustCompile(`(?is)<\s*/?\s*(script|iframe|object|embed)[^>]*>`)
	eventAttrRe    = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	jsProtocolRe   = regexp.MustCompile(`(?i)javascript\s*:`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Sanitize remove markup executável antes de persistir. Não tenta
// escapar HTML — o valor armazenado é texto puro.
func Sanitize(value string) string {
	value = scriptTagRe.ReplaceAllString(value, "")
	value = eventAttrRe.ReplaceAllString(value, "")
	value = jsProtocolRe.ReplaceAllString(value, "")
	value = controlCharsRe.ReplaceAllString(value, "")
	return strings.TrimSpace(value)
}
