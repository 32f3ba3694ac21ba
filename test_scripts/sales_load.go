package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Product is the catalogue entry the sales refer to
type Product struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Sale represents the structure of a sale record to insert
type Sale struct {
	SaleDate  string  `json:"sale_date"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

var products = []Product{
	{ID: "p1", Name: "Notebook"},
	{ID: "p2", Name: "Pencil"},
	{ID: "p3", Name: "Stapler"},
	{ID: "p4", Name: "Backpack"},
	{ID: "p5", Name: "Calculator"},
}

// randomSale generates a sale of a catalogue product at a random time in 2024
func randomSale() Sale {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration(rand.Int63n(int64(365 * 24 * time.Hour)))
	return Sale{
		SaleDate:  start.Add(offset).Format(time.RFC3339),
		ProductID: products[rand.Intn(len(products))].ID,
		Quantity:  rand.Intn(10) + 1,
		Price:     float64(rand.Intn(9900)+100) / 100,
	}
}

// post sends a JSON body and returns the response body
func post(url string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run test_scripts/sales_load.go <number_of_sales> [server_url]")
		fmt.Println("Example: go run test_scripts/sales_load.go 1000")
		fmt.Println("Example: go run test_scripts/sales_load.go 1000 http://localhost:8080")
		os.Exit(1)
	}

	numSales, err := strconv.Atoi(os.Args[1])
	if err != nil {
		fmt.Printf("Error: Invalid number of sales '%s'. Please provide a valid integer.\n", os.Args[1])
		os.Exit(1)
	}
	if numSales <= 0 {
		fmt.Println("Error: Number of sales must be greater than 0")
		os.Exit(1)
	}

	serverURL := "http://localhost:8080"
	if len(os.Args) >= 3 {
		serverURL = os.Args[2]
	}

	fmt.Printf("Seeding %d products to %s\n", len(products), serverURL)
	for _, p := range products {
		if _, err := post(serverURL+"/products", p); err != nil {
			// Products survive restarts, so a rerun hits duplicate ids.
			fmt.Printf("Skipping product %s: %v\n", p.ID, err)
		}
	}

	fmt.Printf("Starting load test: inserting %d sales\n", numSales)
	fmt.Println("Press Ctrl+C to stop early")

	startTime := time.Now()
	successCount := 0
	errorCount := 0
	reportInterval := max(1, numSales/10)

	for i := 0; i < numSales; i++ {
		sale := randomSale()
		if _, err := post(serverURL+"/add-sale", sale); err != nil {
			errorCount++
			fmt.Printf("Error inserting sale %d (%s): %v\n", i+1, sale.ProductID, err)
		} else {
			successCount++
		}

		if (i+1)%reportInterval == 0 || i == numSales-1 {
			elapsed := time.Since(startTime)
			rate := float64(i+1) / elapsed.Seconds()
			fmt.Printf("Progress: %d/%d sales (%.1f%%) - Rate: %.1f sales/sec - Success: %d, Errors: %d\n",
				i+1, numSales, float64(i+1)/float64(numSales)*100, rate, successCount, errorCount)
		}
	}

	totalTime := time.Since(startTime)

	reportStart := time.Now()
	report, err := post(serverURL+"/total-revenue", map[string]string{
		"startDate": "2024-01-01",
		"endDate":   "2024-12-31T23:59:59Z",
	})
	reportTime := time.Since(reportStart)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total sales attempted:  %d\n", numSales)
	fmt.Printf("Successful inserts:     %d\n", successCount)
	fmt.Printf("Failed inserts:         %d\n", errorCount)
	fmt.Printf("Success rate:           %.2f%%\n", float64(successCount)/float64(numSales)*100)
	fmt.Printf("Total time:             %v\n", totalTime)
	fmt.Printf("Average rate:           %.2f sales/sec\n", float64(numSales)/totalTime.Seconds())
	fmt.Printf("Revenue report time:    %v\n", reportTime)

	if err != nil {
		fmt.Printf("\nError: revenue report failed: %v\n", err)
		os.Exit(1)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(report, &rows); err != nil {
		fmt.Printf("\nError: cannot decode revenue report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nRevenue per product:")
	for _, row := range rows {
		fmt.Printf("  %-6v %-12v %12.2f\n", row["product_id"], row["product_name"], row["totalRevenue"])
	}

	if errorCount > 0 {
		fmt.Printf("\nWarning: %d errors occurred during the load test\n", errorCount)
		os.Exit(1)
	}

	fmt.Println("\nLoad test completed successfully!")
}
