package candrive

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config is a commissioning profile : which bus to open, which drive
// to command and the motion to run. Loaded from an ini file, e.g. :
//
//	[can]
//	driver  = socketcan
//	channel = can0
//	bitrate = 1000000
//
//	[drive]
//	node              = 127
//	sdo_timeout_ms    = 1000
//	settle_timeout_ms = 2000
//	poll_interval_ms  = 50
//
//	[motion]
//	speed         = 800
//	accel         = 1000
//	decel         = 1000
//	duration_s    = 15
//	disable_after = true
type Config struct {
	Driver  string
	Channel string
	// Bitrate is informative for socketcan (the interface is brought
	// up out of band), the virtualcan server ignores it
	Bitrate int

	NodeId        uint8
	SDOTimeout    time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration

	Profile      MotionProfile
	Duration     time.Duration
	DisableAfter bool
}

func DefaultConfig() *Config {
	return &Config{
		Driver:        "socketcan",
		Channel:       "can0",
		Bitrate:       1000000,
		NodeId:        127,
		SDOTimeout:    DefaultSDOClientTimeout,
		SettleTimeout: DefaultSettleTimeout,
		PollInterval:  DefaultStatusPollInterval,
		Profile:       MotionProfile{Speed: 800, Accel: 1000, Decel: 1000, Mode: ModeProfileVelocity},
		Duration:      15 * time.Second,
		DisableAfter:  true,
	}
}

// LoadConfig reads a commissioning profile, filling missing keys with
// the defaults from DefaultConfig
func LoadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %v : %w", path, err)
	}
	config := DefaultConfig()

	canSection := file.Section("can")
	config.Driver = canSection.Key("driver").MustString(config.Driver)
	config.Channel = canSection.Key("channel").MustString(config.Channel)
	config.Bitrate = canSection.Key("bitrate").MustInt(config.Bitrate)

	driveSection := file.Section("drive")
	node := driveSection.Key("node").MustInt(int(config.NodeId))
	if node < 1 || node > 127 {
		return nil, fmt.Errorf("node should be between 1 and 127, value given : %v", node)
	}
	config.NodeId = uint8(node)
	config.SDOTimeout = time.Duration(driveSection.Key("sdo_timeout_ms").MustInt(int(config.SDOTimeout.Milliseconds()))) * time.Millisecond
	config.SettleTimeout = time.Duration(driveSection.Key("settle_timeout_ms").MustInt(int(config.SettleTimeout.Milliseconds()))) * time.Millisecond
	config.PollInterval = time.Duration(driveSection.Key("poll_interval_ms").MustInt(int(config.PollInterval.Milliseconds()))) * time.Millisecond
	if config.SDOTimeout <= 0 || config.SettleTimeout <= 0 || config.PollInterval <= 0 {
		return nil, fmt.Errorf("timeouts should be strictly positive")
	}

	motionSection := file.Section("motion")
	config.Profile.Speed = int32(motionSection.Key("speed").MustInt(int(config.Profile.Speed)))
	config.Profile.Accel = int32(motionSection.Key("accel").MustInt(int(config.Profile.Accel)))
	config.Profile.Decel = int32(motionSection.Key("decel").MustInt(int(config.Profile.Decel)))
	config.Profile.Mode = OperationMode(motionSection.Key("mode").MustInt(int(config.Profile.Mode)))
	config.Duration = time.Duration(motionSection.Key("duration_s").MustInt(int(config.Duration.Seconds()))) * time.Second
	config.DisableAfter = motionSection.Key("disable_after").MustBool(config.DisableAfter)

	return config, nil
}

// NewBusFromConfig creates the CAN bus driver selected by the profile
func NewBusFromConfig(config *Config) (Bus, error) {
	switch config.Driver {
	case "socketcan":
		return NewSocketcanBus(config.Channel)
	case "virtualcan":
		return NewVirtualCanBus(config.Channel), nil
	default:
		return nil, fmt.Errorf("unsupported driver : %v", config.Driver)
	}
}
