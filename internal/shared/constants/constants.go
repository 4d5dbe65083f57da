package constants

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Database table names
	TableUsers         = "users"
	TablePlans         = "plans"
	TableSubscriptions = "subscriptions"
	TableOrders        = "orders"
	TablePlanChanges   = "plan_changes"

	// Redis keys
	RedisKeyJobLeasePrefix    = "billing:lease:"
	RedisKeyProvisioningQueue = "billing:provisioning:queue"
	RedisKeyRateLimitPrefix   = "billing:ratelimit:"
	RedisKeyReconciliation    = "billing:reconciliation:charges"
	RedisKeyChargeHoldPrefix  = "billing:reconciliation:hold:"

	// Scheduled job names; also used as lease keys.
	JobRunDueRenewals             = "run-due-renewals"
	JobSendSuspensionWarnings     = "send-suspension-warnings"
	JobSuspendExpiredGracePeriods = "suspend-expired-grace-periods"
	JobExpireSubscriptions        = "expire-subscriptions"

	ErrMsgInternalServerError = "Internal server error occurred"
)
