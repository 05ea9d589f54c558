// Command dialout places an outbound call through the Vonage Voice API. The
// callee is connected to the agent once Vonage fetches the answer URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ent0n29/callagent/internal/config"
	"github.com/ent0n29/callagent/internal/policy"
	"github.com/ent0n29/callagent/internal/vonage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	to := flag.String("to", "", "destination number in E.164 format without the leading +")
	from := flag.String("from", cfg.VonagePhoneNumber, "caller number (defaults to VONAGE_PHONE_NUMBER)")
	answerURL := flag.String("answer-url", "", "answer webhook URL (defaults to https://PUBLIC_HOST/webhooks/answer)")
	agentID := flag.String("agent-id", "agent_001", "agent used when the answer URL is derived from PUBLIC_HOST")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Parse()

	if *to == "" || *from == "" {
		flag.Usage()
		os.Exit(2)
	}
	target := *answerURL
	if target == "" {
		if cfg.PublicHost == "" {
			log.Fatalf("either -answer-url or PUBLIC_HOST is required")
		}
		target = fmt.Sprintf("https://%s/webhooks/answer?agent_id=%s", cfg.PublicHost, url.QueryEscape(*agentID))
	}

	key, err := vonage.LoadPrivateKey(cfg.VonagePrivateKeyPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	client, err := vonage.NewClient(vonage.ClientConfig{
		ApplicationID: cfg.VonageApplicationID,
		PrivateKey:    key,
		APIURL:        cfg.VonageAPIURL,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	info, err := client.CreateCall(ctx, *to, *from, target)
	if err != nil {
		log.Fatalf("create call failed: %v", err)
	}
	redacted, _ := policy.RedactPII(*to)
	log.Printf("call %s to %s: %s (%s)", info.UUID, redacted, info.Status, info.Direction)
}
