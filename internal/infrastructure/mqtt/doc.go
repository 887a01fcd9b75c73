// Package mqtt provides MQTT client connectivity for dictd.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained state and unretained event publishes per leaf
//   - The <prefix>/set/ subscription, delivered as node URIs
//   - Last Will and Testament (LWT) for offline detection
//   - The dictd topic hierarchy (Topics)
//
// # Architecture
//
// dictd mirrors dictionary leaves onto MQTT so that dashboards and other
// services can follow the device without opening a session of their own.
//
//	Object tree -> mirror session -> Client -> broker -> <prefix>/state/...
//	broker -> <prefix>/set/... -> Client -> mirror session -> Object tree
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) whenever the broker is not local
//   - Credentials are validated against the broker ACL
//   - Writes arriving on <prefix>/set/ are subject to the mirror session's
//     userlevel like any other client
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishState("laser1:power", []byte(`0.5`))
package mqtt
