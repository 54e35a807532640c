package model

type DeviceTokenReportReq struct {
	DeviceToken string `json:"device_token" binding:"required,max=200"`
	Platform    string `json:"platform" binding:"required,oneof=iOS android web"`
}
