package items

// AgentVersion is reported by agent.version; bump alongside releases.
const AgentVersion = "1.0.0"

func agentPing(args []string) (interface{}, error) {
	return int64(1), nil
}

func agentVersion(args []string) (interface{}, error) {
	return AgentVersion, nil
}
