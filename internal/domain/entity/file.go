package entity

// SelectedFile файл, выбранный пользователем для детекции
type SelectedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// RejectCode причина отклонения файла
type RejectCode string

const (
	RejectTooLarge    RejectCode = "file-too-large"
	RejectInvalidType RejectCode = "file-invalid-type"
)

// RejectReason одна причина отклонения с текстом для пользователя
type RejectReason struct {
	Code    RejectCode `json:"code"`
	Message string     `json:"message"`
}

// Rejection отклонённый файл и все причины сразу.
type Rejection struct {
	FileName string         `json:"file_name"`
	Reasons  []RejectReason `json:"reasons"`
}

// Has сообщает, есть ли среди причин указанная.
func (r Rejection) Has(code RejectCode) bool {
	for _, reason := range r.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}
