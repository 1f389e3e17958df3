package websocket

// Outbound message shapes. All frames are JSON objects.

type echoResponse struct {
	Count int    `json:"count"`
	Echo  string `json:"echo,omitempty"`
}

type heartbeatMessage struct {
	TS string `json:"ts"`
}

type broadcastMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Title     string `json:"title"`
}

type newMessagesNotice struct {
	Type      string  `json:"type"`
	SessionID *string `json:"sessionId"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
}

type byeMessage struct {
	Bye     bool   `json:"bye"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}
