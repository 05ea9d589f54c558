package vonage

// AudioContentType is the media format negotiated for websocket calls.
const AudioContentType = "audio/l16;rate=16000"

// Action is one NCCO instruction.
type Action struct {
	Action   string     `json:"action"`
	Endpoint []Endpoint `json:"endpoint,omitempty"`
}

type Endpoint struct {
	Type        string            `json:"type"`
	URI         string            `json:"uri"`
	ContentType string            `json:"content-type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ConnectNCCO connects the answered call's audio to the websocket at wsURL,
// tagging it with the session identifier.
func ConnectNCCO(wsURL, sessionID string) []Action {
	return []Action{
		{
			Action: "connect",
			Endpoint: []Endpoint{
				{
					Type:        "websocket",
					URI:         wsURL,
					ContentType: AudioContentType,
					Headers:     map[string]string{"call_state_id": sessionID},
				},
			},
		},
	}
}
