// Package mqtt provides MQTT client connectivity for the microdb change feed.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Committed table changes are published by the changefeed package on
// microdb/{database}/change/{table}/{op}. Any number of watchers subscribe
// without touching the database.
//
//	microdb writer → MQTT Broker → watchers (microdb watch, other services)
//
// # Security Considerations
//
//   - TLS should be enabled for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Change payloads contain row data and are not encrypted beyond TLS
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Changefeed.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.DatabaseChanges("shop"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("change: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
