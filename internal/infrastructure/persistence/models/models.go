package models

// All lists every billing model in migration order.
func All() []interface{} {
	return []interface{}{
		&UserModel{},
		&PlanModel{},
		&SubscriptionModel{},
		&OrderModel{},
		&PlanChangeModel{},
	}
}
