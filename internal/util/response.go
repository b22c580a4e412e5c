package util

type Envelope map[string]any

// Error and Message share the "message" key the frontend reads.
func Error(message string) Envelope {
	return Envelope{"message": message}
}

func Message(message string) Envelope {
	return Envelope{"message": message}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
