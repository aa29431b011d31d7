package main

import (
	"flag"
	"time"

	candrive "github.com/RedlerQA/candrive"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Command line arguments, all of which override the profile file
	profilePath := flag.String("c", "", "commissioning profile path (ini)")
	driver := flag.String("d", "", "can driver : socketcan, virtualcan")
	channel := flag.String("i", "", "can channel e.g. can0, vcan0 or host:port for virtualcan")
	nodeId := flag.Int("n", 0, "drive node id")
	speed := flag.Int("speed", 0, "target velocity in CAN units")
	accel := flag.Int("accel", 0, "profile acceleration in CAN units")
	decel := flag.Int("decel", 0, "profile deceleration in CAN units")
	duration := flag.Int("t", -1, "movement duration in seconds")
	keepEnabled := flag.Bool("keep-enabled", false, "leave the drive enabled after motion")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	config := candrive.DefaultConfig()
	if *profilePath != "" {
		loaded, err := candrive.LoadConfig(*profilePath)
		if err != nil {
			log.Fatalf("%v", err)
		}
		config = loaded
	}
	if *driver != "" {
		config.Driver = *driver
	}
	if *channel != "" {
		config.Channel = *channel
	}
	if *nodeId != 0 {
		config.NodeId = uint8(*nodeId)
	}
	if *speed != 0 {
		config.Profile.Speed = int32(*speed)
	}
	if *accel != 0 {
		config.Profile.Accel = int32(*accel)
	}
	if *decel != 0 {
		config.Profile.Decel = int32(*decel)
	}
	if *duration >= 0 {
		config.Duration = time.Duration(*duration) * time.Second
	}
	if *keepEnabled {
		config.DisableAfter = false
	}

	bus, err := candrive.NewBusFromConfig(config)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := bus.Connect(); err != nil {
		log.Fatalf("failed to connect to %v (%v) : %v", config.Channel, config.Driver, err)
	}
	defer bus.Disconnect()

	controller, err := candrive.NewController(bus, config.NodeId)
	if err != nil {
		log.Fatalf("%v", err)
	}
	controller.Client().Timeout = config.SDOTimeout
	controller.Drive().SettleTimeout = config.SettleTimeout
	controller.Drive().PollInterval = config.PollInterval

	err = controller.MoveProfileVelocity(config.Profile, candrive.MoveOptions{
		Duration:     config.Duration,
		DisableAfter: config.DisableAfter,
	})
	if err != nil {
		log.Fatalf("motion sequence failed : %v", err)
	}
	log.Infof("motion sequence completed")
}
