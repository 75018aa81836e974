package gateway

// CustomerProfile фиксированный профиль покупателя: шлюз требует его, а бот не собирает данные
type CustomerProfile struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Document    string `json:"document"`
}

// CartItem единственная позиция корзины
type CartItem struct {
	ProductHash   string `json:"product_hash"`
	Title         string `json:"title"`
	Price         int    `json:"price"`
	Quantity      int    `json:"quantity"`
	OperationType int    `json:"operation_type"`
	Tangible      bool   `json:"tangible"`
}

// Tracking возвращается шлюзом в постбэке; несет покупателя на случай, если в журнале нет id
type Tracking struct {
	SubscriberID int64 `json:"subscriber_id"`
}

// CreateTransactionRequest тело POST /api/public/v1/transactions
type CreateTransactionRequest struct {
	Amount        int             `json:"amount"`
	OfferHash     string          `json:"offer_hash"`
	PaymentMethod string          `json:"payment_method"`
	Customer      CustomerProfile `json:"customer"`
	Cart          []CartItem      `json:"cart"`
	ExpireInDays  int             `json:"expire_in_days"`
	Tracking      Tracking        `json:"tracking"`
}

// ChargeResult ответ шлюза и то, что удалось из него извлечь
type ChargeResult struct {
	StatusCode   int
	RawResponse  string
	Parsed       any
	ExternalTxID string
	PaymentCode  string
	ImagePayload string
}
