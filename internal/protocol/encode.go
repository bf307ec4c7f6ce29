package protocol

// NewStatus builds the outbound envelope for one status kind.
func NewStatus(identity string, kind Kind, payload map[string]any) Outbound {
	return Outbound{
		Type:     TypeStatus,
		Identity: identity,
		Body:     kind,
		Payload:  payload,
	}
}
