package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/homecoming/core/model"
)

// TestMQTTTriggerWithBroker publishes through a real Mosquitto broker.
func TestMQTTTriggerWithBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("terminate container: %v", err)
		}
	}()
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	if tok := sub.Connect(); !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("observer connect: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	got := make(chan []byte, 1)
	if tok := sub.Subscribe("home/+/light", 1, func(_ paho.Client, m paho.Message) { got <- m.Payload() }); !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	trig, err := New(ModuleConfig{Type: "mqtt", Conf: map[string]any{
		"broker": broker,
		"topic":  "home/{user}/light",
		"qos":    1,
	}})
	if err != nil {
		t.Fatalf("new trigger: %v", err)
	}
	defer func() {
		if c, ok := trig.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}()

	if err := trig.Fire(ctx, model.TriggerJob{ID: "j1", UserID: "U1", Phase: model.PhaseOn, FireAt: time.Now()}); err != nil {
		t.Fatalf("fire: %v", err)
	}
	select {
	case payload := <-got:
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if cmd.JobID != "j1" || cmd.Phase != model.PhaseOn {
			t.Fatalf("unexpected command %+v", cmd)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
