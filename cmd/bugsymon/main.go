package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/bugsy.go/pkg/bus"
	"github.com/robotalks/bugsy.go/pkg/core"
	"github.com/robotalks/bugsy.go/pkg/liveness"
	"github.com/robotalks/bugsy.go/pkg/status"
	"github.com/robotalks/bugsy.go/pkg/transport/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/bugsy/"
)

func init() {
	if val := os.Getenv("BUGSY_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func printStatus(topic string, payload []byte) {
	device := strings.TrimSuffix(topic, "/"+mqtt.TopicStatus)
	if len(payload) == 0 {
		log.Printf("%s: offline", device)
		return
	}
	st, err := status.Decode(payload)
	if err != nil {
		log.Printf("%s: bad status: %v", device, err)
		return
	}
	line := []string{
		core.State(st.State).String(),
		"channels=" + bus.ChannelSet(st.Channels).String(),
		"active=" + bus.ChannelSet(st.ActiveChannels).String(),
		"trader=" + liveness.State(st.TraderState).String(),
	}
	if m := st.Movement; m != nil {
		line = append(line, "move="+m.String(), "until="+st.ExpiresAt().Format("15:04:05.000"))
	}
	log.Printf("%s: %s", device, strings.Join(line, " "))
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	q.Sub("+/"+mqtt.TopicStatus, mqtt.Handler(printStatus))
	<-(chan struct{})(nil)
}
