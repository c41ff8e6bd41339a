package models

// Recognized settings keys. The salt key, once created, is never regenerated
// or deleted by normal operation.
const (
	SettingSalt             = "salt"
	SettingAppVersion       = "appVersion"
	SettingSiteTitle        = "siteTitle"
	SettingTeacherPINHash   = "teacherPinHash"
	SettingTeacherSession   = "teacherSession"
	SettingAssistantEnabled = "assistantEnabled"
)

// UpdateSettingRequest writes one settings value.
type UpdateSettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}
