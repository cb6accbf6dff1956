// Command order-producer generates synthetic order instructions and
// publishes them to the inbound order topic, for load and smoke testing
// the engine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func generateInstructions(count int, instrumentID string, basePrice, priceSpread float64) []orderv1.Instruction {
	instructions := make([]orderv1.Instruction, count)

	for i := 0; i < count; i++ {
		side := orderv1.SideSell
		if rand.Float64() < 0.5 {
			side = orderv1.SideBuy
		}

		// Buys cluster below the base price, sells above, with enough
		// overlap that a realistic share of orders cross.
		var price float64
		if side == orderv1.SideBuy {
			price = basePrice - (rand.Float64()-0.3)*priceSpread
		} else {
			price = basePrice + (rand.Float64()-0.3)*priceSpread
		}
		if price < 0.01 {
			price = basePrice
		}

		quantity := 1 + rand.Float64()*99

		instructions[i] = orderv1.Instruction{
			Action:       orderv1.ActionSubmit,
			InstrumentID: instrumentID,
			RequesterID:  uuid.NewString(),
			Side:         string(side),
			Price:        fmt.Sprintf("%.2f", price),
			Quantity:     fmt.Sprintf("%.2f", quantity),
		}
	}

	return instructions
}

func main() {
	var (
		brokers      = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic        = flag.String("topic", "orders", "Kafka topic name")
		instrumentID = flag.String("instrument", "VCS-2026", "instrument id the orders target")
		file         = flag.String("file", "", "JSON file with instructions (optional, generates if not provided)")
		delay        = flag.Duration("delay", 100*time.Millisecond, "delay between instructions")
		count        = flag.Int("count", 1000, "number of instructions to generate")
		basePrice    = flag.Float64("base-price", 25.50, "base price per ton")
		priceSpread  = flag.Float64("price-spread", 4.0, "price spread range")
	)
	flag.Parse()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()

	var instructions []orderv1.Instruction
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("failed to read file %s: %v", *file, err)
		}
		if err := json.Unmarshal(data, &instructions); err != nil {
			log.Fatalf("failed to parse JSON from file: %v", err)
		}
		log.Printf("loaded %d instructions from %s", len(instructions), *file)
	} else {
		instructions = generateInstructions(*count, *instrumentID, *basePrice, *priceSpread)
		log.Printf("generated %d instructions for %s", len(instructions), *instrumentID)
	}

	log.Printf("sending to broker %s, topic %s, delay %v", *brokers, *topic, *delay)

	for i, instruction := range instructions {
		value, err := json.Marshal(instruction)
		if err != nil {
			log.Printf("failed to marshal instruction %d: %v", i+1, err)
			continue
		}

		msg := kafka.Message{
			Key:   []byte(instruction.InstrumentID),
			Value: value,
			Time:  time.Now(),
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("failed to send instruction %d: %v", i+1, err)
			continue
		}

		if (i+1)%100 == 0 || i == len(instructions)-1 {
			log.Printf("sent %d/%d: %s %s %s @ $%s",
				i+1, len(instructions), instruction.Action,
				instruction.Side, instruction.Quantity, instruction.Price)
		}

		if i < len(instructions)-1 {
			time.Sleep(*delay)
		}
	}

	buys, sells := 0, 0
	for _, instruction := range instructions {
		if instruction.Side == string(orderv1.SideBuy) {
			buys++
		} else {
			sells++
		}
	}
	log.Printf("done: %d instructions (%d buys, %d sells)", len(instructions), buys, sells)
}
