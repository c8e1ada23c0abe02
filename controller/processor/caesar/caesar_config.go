package caesar

import (
	"github.com/burakmyildiz/covertovert/controller/config"
)

type ConfigClient struct {
	Shift config.I8Param
}

func GetDefault() ConfigClient {
	return ConfigClient{
		Shift: config.MakeI8(3, [2]int8{-25, 25}, config.Display{Description: "The letter shift for the Caesar cypher."})}
}

func ToProcessor(cc ConfigClient) (*Caesar, error) {
	return &Caesar{Shift: cc.Shift.Value}, nil
}
