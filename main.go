package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rkechols/bulk-sms/api"
	"github.com/rkechols/bulk-sms/internal/config"
	"github.com/rkechols/bulk-sms/internal/recipients"
	"github.com/rkechols/bulk-sms/internal/sender"
	"github.com/rkechols/bulk-sms/internal/services"
)

// exit codes: 0 all sent, 1 some sends failed, 2 bad usage,
// 3 missing configuration, 4 unreadable or malformed input file
const (
	exitOK = iota
	exitSendFailed
	exitUsage
	exitConfig
	exitParse
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
}

func main() {
	recipientsPath := flag.String("recipients", "", "path to a JSON file of recipient groups")
	messagePath := flag.String("message", "", "path to a plain text file with the message to send")
	example := flag.Bool("example", false, "print an example recipients file and exit")
	devices := flag.Bool("devices", false, "list the account's active devices and exit")
	yes := flag.Bool("yes", false, "send without asking for confirmation")
	serve := flag.Bool("serve", false, "run the HTTP gateway instead of sending")
	addr := flag.String("addr", ":8080", "listen address for --serve")
	timeout := flag.Duration("timeout", 0, "override the request timeout, e.g. 10s")
	flag.Parse()

	if *example {
		fmt.Println(recipients.ExampleJSON())
		return
	}

	cfg := config.Load()
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	if *devices {
		os.Exit(listDevices(cfg))
	}

	if *serve {
		runServer(cfg, *addr)
		return
	}

	if *recipientsPath == "" || *messagePath == "" {
		fmt.Fprintln(os.Stderr, "both --recipients and --message are required")
		flag.Usage()
		os.Exit(exitUsage)
	}

	os.Exit(run(cfg, *recipientsPath, *messagePath, *yes))
}

func run(cfg *config.Config, recipientsPath, messagePath string, skipConfirm bool) int {
	if err := cfg.Validate(); err != nil {
		log.Println(err)
		return exitConfig
	}

	groups, err := recipients.Load(recipientsPath)
	if err != nil {
		log.Println(err)
		return exitParse
	}
	message, err := recipients.LoadMessage(messagePath)
	if err != nil {
		log.Println(err)
		return exitParse
	}

	fmt.Println("----- MESSAGE -----")
	fmt.Println(message)
	fmt.Println("----- RECIPIENTS -----")
	for _, group := range groups {
		fmt.Printf("%s: %s\n", group.Name, strings.Join(group.Numbers, ", "))
	}
	fmt.Println(strings.Repeat("-", 20))

	if !skipConfirm && !confirm() {
		fmt.Println("ABORT")
		return exitOK
	}

	svc, err := services.NewPushbulletService(cfg)
	if err != nil {
		log.Println(err)
		return exitConfig
	}
	if err := svc.Open(); err != nil {
		log.Println(err)
		return exitConfig
	}
	defer svc.Close()

	fmt.Println("sending...")
	results := sender.Run(context.Background(), svc, groups, message)
	sender.Report(os.Stdout, results)

	if _, failed := sender.Summarize(results); failed > 0 {
		return exitSendFailed
	}
	return exitOK
}

func listDevices(cfg *config.Config) int {
	if err := cfg.Validate(); err != nil {
		log.Println(err)
		return exitConfig
	}

	svc, err := services.NewPushbulletService(cfg)
	if err != nil {
		log.Println(err)
		return exitConfig
	}
	if err := svc.Open(); err != nil {
		log.Println(err)
		return exitConfig
	}
	defer svc.Close()

	devices, err := svc.ListDevices(context.Background())
	if err != nil {
		log.Println(err)
		return exitSendFailed
	}
	for _, device := range devices {
		sms := ""
		if device.HasSMS {
			sms = " (sms)"
		}
		fmt.Printf("%s: %s %s%s\n", device.Iden, device.Nickname, device.Model, sms)
	}
	return exitOK
}

func confirm() bool {
	fmt.Print("Would you like to send? (y/N): ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func runServer(cfg *config.Config, addr string) {
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET must be set to run the gateway")
	}

	svc, err := services.NewPushbulletService(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := svc.Open(); err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	r := api.SetupRouter(svc)

	log.Printf("gateway is starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
