package app

import (
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"damage-detect/internal/domain/entity"
)

// FileRules ограничения на загружаемый файл
type FileRules struct {
	Pattern  string // список типов через запятую, допускается "image/*"
	MaxBytes int64
}

// Check проверяет размер и тип файла без побочных эффектов. Возвращает файл
// с уточнённым типом и все найденные причины отказа.
func (r FileRules) Check(file entity.SelectedFile) (entity.SelectedFile, []entity.RejectReason) {
	if file.Size == 0 && len(file.Data) > 0 {
		file.Size = int64(len(file.Data))
	}

	var reasons []entity.RejectReason
	if r.MaxBytes > 0 && file.Size > r.MaxBytes {
		reasons = append(reasons, entity.RejectReason{
			Code:    entity.RejectTooLarge,
			Message: fmt.Sprintf("file too large: %s exceeds %s", FormatMegabytes(file.Size), FormatMegabytes(r.MaxBytes)),
		})
	}

	file.MIMEType = effectiveType(file)
	if !MatchesPattern(r.Pattern, file.MIMEType) {
		reasons = append(reasons, entity.RejectReason{
			Code:    entity.RejectInvalidType,
			Message: fmt.Sprintf("file type must be %s", r.Pattern),
		})
	}

	return file, reasons
}

// Validator принимает ровно один файл, проверяя тип и размер.
// Пока идёт запрос, валидатор выключен и молча игнорирует новые файлы.
type Validator struct {
	rules    FileRules
	onSelect func(entity.SelectedFile)

	mu       sync.Mutex
	disabled bool
}

// NewValidator создаёт валидатор; onSelect вызывается для принятого файла.
func NewValidator(rules FileRules, onSelect func(entity.SelectedFile)) *Validator {
	return &Validator{rules: rules, onSelect: onSelect}
}

// Rules возвращает ограничения валидатора
func (v *Validator) Rules() FileRules {
	return v.rules
}

// SetDisabled включает или выключает приём файлов.
func (v *Validator) SetDisabled(disabled bool) {
	v.mu.Lock()
	v.disabled = disabled
	v.mu.Unlock()
}

// Disabled сообщает, выключен ли валидатор.
func (v *Validator) Disabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disabled
}

// Select проверяет первый из кандидатов. Возвращает принятый файл или список отказов.
// В выключенном режиме и без кандидатов возвращает nil, nil.
func (v *Validator) Select(candidates []entity.SelectedFile) (*entity.SelectedFile, []entity.Rejection) {
	if v.Disabled() || len(candidates) == 0 {
		return nil, nil
	}

	file, reasons := v.rules.Check(candidates[0])
	if len(reasons) > 0 {
		return nil, []entity.Rejection{{FileName: file.Name, Reasons: reasons}}
	}

	if v.onSelect != nil {
		v.onSelect(file)
	}
	return &file, nil
}

// effectiveType берёт объявленный тип, а если его нет, определяет по содержимому.
func effectiveType(file entity.SelectedFile) string {
	declared := normalizeType(file.MIMEType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(file.Data) == 0 {
		return declared
	}
	return normalizeType(mimetype.Detect(file.Data).String())
}

func normalizeType(t string) string {
	if t == "" {
		return ""
	}
	media, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return media
}

// MatchesPattern проверяет тип по списку вида "image/jpeg,image/png" или "image/*".
func MatchesPattern(pattern, mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, p := range strings.Split(pattern, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
			continue
		case p == "*/*" || p == mimeType:
			return true
		case strings.HasSuffix(p, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(p, "*")):
			return true
		}
	}
	return false
}
