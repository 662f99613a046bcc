package dto

// AdminGrantCreditsRequest 管理员充值
type AdminGrantCreditsRequest struct {
	UID    string `json:"uid" binding:"required,max=128"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=100"`
}

// AdminSetPlanRequest 管理员设置套餐
type AdminSetPlanRequest struct {
	UID  string `json:"uid" binding:"required,max=128"`
	Plan string `json:"plan" binding:"required,oneof=free pro team"`
}

// AdminSyncPaymentRequest 管理员同步支付
type AdminSyncPaymentRequest struct {
	UID string `json:"uid" binding:"required,max=128"`
}

// OKResponse 通用成功响应
type OKResponse struct {
	OK bool `json:"ok"`
}
