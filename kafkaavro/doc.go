// Package kafkaavro ties the schema registry, the Avro serde and the Kafka
// transport together behind one configuration.
//
// Without fx:
//
//	cfg, err := kafkaavro.LoadConfig("")
//	if err != nil {
//		return err
//	}
//	ka, err := kafkaavro.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer ka.Close(context.Background())
//
//	if _, err := ka.Init(ctx); err != nil {
//		return err
//	}
//
//	producer, err := ka.Producer()
//	if err != nil {
//		return err
//	}
//	err = producer.Produce(ctx, "orders", Order{ID: "o-1"}, "o-1")
//
//	consumer, err := ka.Consumer(kafka.ConsumerConfig{Topics: []string{"orders"}, GroupID: "billing"})
//
// With fx, supply a Config and add FXModule (and kafka.ConsumerModule for a
// consumer). The schema cache is preloaded when the application starts.
//
// SetShouldFailWhenSchemaIsMissing toggles strict publishing at runtime:
// when enabled, producing to a subject without a registered schema fails
// instead of registering one derived from the value.
package kafkaavro
