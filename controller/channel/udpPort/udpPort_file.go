package udpPort

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/burakmyildiz/covertovert/controller/config"
)

// The on disk form of ConfigClient.
// Keys that are absent keep their GetDefault value.
type fileConfig struct {
	RangeAMin      uint16 `toml:"range_a_min"`
	RangeAMax      uint16 `toml:"range_a_max"`
	RangeBMin      uint16 `toml:"range_b_min"`
	RangeBMax      uint16 `toml:"range_b_max"`
	BitsPerChar    uint8  `toml:"bits_per_character"`
	Sentinel       string `toml:"sentinel"`
	FriendIP       string `toml:"friend_ip"`
	OriginIP       string `toml:"origin_ip"`
	OriginPort     uint16 `toml:"origin_port"`
	Filter         string `toml:"filter"`
	Transport      string `toml:"transport"`
	Device         string `toml:"device"`
	Picker         string `toml:"picker"`
	GetDelay       string `toml:"delay"`
	DelayMS        uint64 `toml:"delay_ms"`
	ReadTimeoutMS  uint64 `toml:"read_timeout_ms"`
	WriteTimeoutMS uint64 `toml:"write_timeout_ms"`
}

// Load a TOML parameter file over the defaults
func LoadFile(path string) (ConfigClient, error) {
	return OverlayFile(GetDefault(), path)
}

// Load a TOML parameter file over cc
func OverlayFile(cc ConfigClient, path string) (ConfigClient, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ConfigClient{}, fmt.Errorf("load udpPort config: %w", err)
	}
	return applyFile(cc, raw, meta)
}

// Same as LoadFile for an in memory document
func DecodeConfig(data string) (ConfigClient, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return ConfigClient{}, fmt.Errorf("decode udpPort config: %w", err)
	}
	return applyFile(GetDefault(), raw, meta)
}

func applyFile(cc ConfigClient, raw fileConfig, meta toml.MetaData) (ConfigClient, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return ConfigClient{}, fmt.Errorf("unknown udpPort config keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("range_a_min") {
		cc.RangeA.Value[0] = raw.RangeAMin
	}
	if meta.IsDefined("range_a_max") {
		cc.RangeA.Value[1] = raw.RangeAMax
	}
	if meta.IsDefined("range_b_min") {
		cc.RangeB.Value[0] = raw.RangeBMin
	}
	if meta.IsDefined("range_b_max") {
		cc.RangeB.Value[1] = raw.RangeBMax
	}
	if meta.IsDefined("bits_per_character") {
		cc.BitsPerChar.Value = raw.BitsPerChar
	}
	if meta.IsDefined("sentinel") {
		cc.Sentinel.Value = raw.Sentinel
	}
	if meta.IsDefined("friend_ip") {
		cc.FriendIP.Value = strings.TrimSpace(raw.FriendIP)
	}
	if meta.IsDefined("origin_ip") {
		cc.OriginIP.Value = strings.TrimSpace(raw.OriginIP)
	}
	if meta.IsDefined("origin_port") {
		cc.OriginPort.Value = raw.OriginPort
	}
	if meta.IsDefined("filter") {
		cc.Filter.Value = strings.TrimSpace(raw.Filter)
	}
	if meta.IsDefined("transport") {
		cc.Transport.Value = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("device") {
		cc.Device.Value = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("picker") {
		cc.Picker.Value = strings.TrimSpace(raw.Picker)
	}
	if meta.IsDefined("delay") {
		cc.GetDelay.Value = strings.TrimSpace(raw.GetDelay)
	}
	if meta.IsDefined("delay_ms") {
		cc.Delay.Value = raw.DelayMS
	}
	if meta.IsDefined("read_timeout_ms") {
		cc.ReadTimeout.Value = raw.ReadTimeoutMS
	}
	if meta.IsDefined("write_timeout_ms") {
		cc.WriteTimeout.Value = raw.WriteTimeoutMS
	}

	if err := config.Validate(cc); err != nil {
		return ConfigClient{}, fmt.Errorf("validate udpPort config: %w", err)
	}
	return cc, nil
}
