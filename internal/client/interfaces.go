package client

// Client is the entrypoint contract for the device agent.
type Client interface {
	// Run blocks until the agent is told to shut down.
	Run() error
}
