package protocol

const (
	ResourceStocks = "/stocks"
	ResourceStock  = "/stocks/{stockId}"

	ParamStockID = "stockId"
)

// Request is the part of an API Gateway proxy event the reader routes on.
type Request struct {
	Resource       string
	Method         string
	PathParameters map[string]string
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

type ErrorBody struct {
	Error string `json:"error"`
}
