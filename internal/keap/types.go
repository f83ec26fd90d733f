package keap

// Config holds Keap (Infusionsoft) REST API settings.
type Config struct {
	BaseURL      string `yaml:"base_url"`
	HookRelayURL string `yaml:"hook_relay_url"`
	TimeoutSecs  int    `yaml:"timeout_seconds"`
}

// integrationToken is a stored OAuth credential for a tenant's Keap account.
// Tenants may hold several from repeated connects; the most recently created
// one wins.
type integrationToken struct {
	AccountName string `json:"account_name"`
	TenantID    string `json:"user_id"`
	AccessToken string `json:"access_token"`
	CreatedAt   int64  `json:"created_at"`
}

// apiOrder is the wire shape of a Keap order. The purchaser is nested in a
// contact block that gets flattened into the domain order.
type apiOrder struct {
	Status  string `json:"status"`
	Contact struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"contact"`
	OrderItems []apiOrderItem `json:"order_items"`
}

type apiOrderItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ordersResponse struct {
	Orders []apiOrder `json:"orders"`
}

// Hook is a registered REST hook subscription.
type Hook struct {
	Key     string `json:"eventKey"`
	HookURL string `json:"hookUrl"`
	Status  string `json:"status"`
}

// hookEventKeysResponse wraps the event key listing.
type hookEventKeysResponse struct {
	EventKeys []string `json:"event_keys"`
}
