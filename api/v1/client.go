package v1

type CrewclockClient struct {
	Transport *Transport
	Clock     *ClockEndpoint
}

// NewCrewclockClient initializes the API client
func NewCrewclockClient(baseURL string, token string) *CrewclockClient {
	t := NewTransport(baseURL, token)
	return &CrewclockClient{
		Transport: t,
		Clock:     &ClockEndpoint{transport: t},
	}
}
