// Command capture-token issues an RS256 capability token granting read
// access to one session, adapted from the teacher's cmd/createtoken.
package main

import (
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fx3stream/capture-index/auth"
)

func main() {
	hoursPtr := flag.Int("hours", 1, "number of hours the token should be valid")
	sessionPtr := flag.String("session", "", "session id to grant read access to")
	flag.Parse()

	if *sessionPtr == "" {
		fmt.Println("You must pass -session")
		os.Exit(1)
	}
	if len(flag.Args()) != 1 {
		fmt.Println("You must include the private key location as the first argument")
		os.Exit(1)
	}

	pemBytes, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		fmt.Println("Failed to read private key:", flag.Args()[0], ":", err)
		os.Exit(1)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		fmt.Println("Failed to decode PEM block from private key file")
		os.Exit(1)
	}
	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		fmt.Println("Failed to parse private key:", err)
		os.Exit(1)
	}

	ttl := time.Hour * time.Duration(*hoursPtr)
	token, err := auth.IssueReadCapability(privateKey, *sessionPtr, ttl)
	if err != nil {
		fmt.Println("Failed to sign token:", err)
		os.Exit(1)
	}
	fmt.Printf("%v", token)
}
