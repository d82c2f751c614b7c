package models

// MailLabel is the many-to-many association between a mail and a label.
// Insertion is idempotent: re-adding an existing pair is a no-op.
type MailLabel struct {
	MailID  string `gorm:"primaryKey;size:64" json:"mailId"`
	LabelID string `gorm:"primaryKey;size:128" json:"labelId"`
}

// TableName returns the table name for MailLabel
func (MailLabel) TableName() string {
	return "mail_labels"
}
