// Package mqtt is the bridge's link to the Gray Logic MQTT bus.
//
// Topics follow graylogic/{category}/{protocol}/{address}; see Topics.
// Subscriptions are replayed after paho reconnects, and each client keeps a
// retained online/offline message under graylogic/system/status with a
// matching Last Will.
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.BridgeCommands("firecracker"), 1, handle)
package mqtt
