package services

// Services bundles the application services shared by the API and the worker
type Services struct {
	Overview      *OverviewService
	Deliveries    *DeliveryService
	Customers     *CustomerService
	Payments      *PaymentService
	Reminders     *ReminderScheduler
	Notifications *NotificationService
	Auth          *AuthService
}
