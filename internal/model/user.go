package model

// UserPlanRes GET /users/plan
type UserPlanRes struct {
	Plan         string `json:"plan"`
	Limit        int    `json:"limit"`
	ActiveAlerts int    `json:"activeAlerts"`
}

// UserPlanSetReq 管理接口：设置用户套餐
type UserPlanSetReq struct {
	UserID string `json:"userId" binding:"required,max=64"`
	Plan   string `json:"plan" binding:"required,max=16"`
}
