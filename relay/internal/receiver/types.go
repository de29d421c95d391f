package receiver

// snsMessage is the JSON body SNS POSTs to HTTP/S subscribers.
type snsMessage struct {
	Type              string                 `json:"Type"`
	MessageID         string                 `json:"MessageId"`
	Token             string                 `json:"Token"`
	TopicArn          string                 `json:"TopicArn"`
	Subject           string                 `json:"Subject"`
	Message           string                 `json:"Message"`
	Timestamp         string                 `json:"Timestamp"`
	SignatureVersion  string                 `json:"SignatureVersion"`
	Signature         string                 `json:"Signature"`
	SigningCertURL    string                 `json:"SigningCertURL"`
	SubscribeURL      string                 `json:"SubscribeURL"`
	UnsubscribeURL    string                 `json:"UnsubscribeURL"`
	MessageAttributes map[string]interface{} `json:"MessageAttributes"`
}

// deliveryResponse is the JSON body returned for every handled delivery.
type deliveryResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
