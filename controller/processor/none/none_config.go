package none

// The none processor has no parameters
type ConfigClient struct{}

func GetDefault() ConfigClient {
	return ConfigClient{}
}

func ToProcessor(cc ConfigClient) (*None, error) {
	return &None{}, nil
}
