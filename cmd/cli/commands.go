package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mauv0809/pickup/internal/auth"
	"github.com/spf13/cobra"
)

var (
	gamesSport    string
	gamesLocation string
	gamesAll      bool
	tokenTTL      time.Duration
)

func init() {
	gamesCmd.Flags().StringVar(&gamesSport, "sport", "", "Only list games of this sport")
	gamesCmd.Flags().StringVar(&gamesLocation, "location", "", "Only list games whose location contains this text")
	gamesCmd.Flags().BoolVar(&gamesAll, "all", false, "Include games that already started")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "How long the token stays valid")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(onlineCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(tokenCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List games",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if gamesSport != "" {
			query.Set("sport", gamesSport)
		}
		if gamesLocation != "" {
			query.Set("location", gamesLocation)
		}
		if gamesAll {
			query.Set("upcoming", "false")
		}
		endpoint := "/api/games"
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		return performGetRequest(endpoint)
	},
}

var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "List the ids of users with a live connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if token == "" {
			return errors.New("--token or PICKUP_TOKEN is required")
		}
		return performGetRequest("/api/users/online")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Sign a session token for a user with the local JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		signed, err := auth.NewIssuer(secret, tokenTTL).Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
