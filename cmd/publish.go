// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/miniscope/pkg/miniscope"
)

var (
	publishBroker   string
	publishTopic    string
	publishClientID string
	publishQoS      int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish frame metadata to an MQTT broker",
	Long: `Acquire frames and publish each frame's metadata as JSON to an MQTT topic.

The acquisition state is published (retained) to TOPIC/state when the
command starts and stops.

Examples:
  miniscope publish --broker tcp://localhost:1883 --topic lab/rig1/miniscope`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	addSettingFlags(publishCmd)
	addCommutatorFlags(publishCmd)
	publishCmd.Flags().StringVar(&publishBroker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	publishCmd.Flags().StringVar(&publishTopic, "topic", "miniscope/frames", "MQTT topic")
	publishCmd.Flags().StringVar(&publishClientID, "client-id", "miniscope", "MQTT client ID")
	publishCmd.Flags().IntVar(&publishQoS, "qos", 0, "MQTT QoS (0, 1 or 2)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	if publishQoS < 0 || publishQoS > 2 {
		return fmt.Errorf("invalid QoS %d", publishQoS)
	}

	src, devInfo, err := OpenSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	comm, port, err := OpenCommutator()
	if err != nil {
		return err
	}
	if port != nil {
		defer port.Close()
	}

	opts := mqtt.NewClientOptions().AddBroker(publishBroker).SetClientID(publishClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWill(publishTopic+"/state", "OFFLINE", 1, true)
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	defer client.Disconnect(250)

	fmt.Printf("Miniscope - MQTT Publisher\n")
	fmt.Printf("Device: %s\n", devInfo)
	fmt.Printf("Broker: %s\n", publishBroker)
	fmt.Printf("Topic: %s\n", publishTopic)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	publishState(client, "RUNNING")
	defer publishState(client, "OFFLINE")

	ctx, stop := interruptContext()
	defer stop()

	sub, err := src.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	published := 0
	err = consume(ctx, sub, func(f miniscope.Frame) error {
		data, err := f.JSON()
		if err != nil {
			return err
		}
		// Frames keep flowing while the broker is unreachable
		client.Publish(publishTopic, byte(publishQoS), false, data)
		driveCommutator(comm, f)

		published++
		if published%100 == 0 {
			fmt.Printf("%d frames published\n", published)
		}
		return nil
	})

	fmt.Printf("\n%s", src.Statistics().String())
	return err
}

func publishState(client mqtt.Client, state string) {
	token := client.Publish(publishTopic+"/state", 1, true, state)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		log.Printf("MQTT state publish failed: %v", token.Error())
	}
}
