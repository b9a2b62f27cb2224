package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "product":
		handleProduct(args)
	case "order":
		handleOrder(args)
	case "admin":
		handleAdmin(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vendorhub auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vendorhub product <list>")
		return
	}

	switch args[0] {
	case "list":
		listProducts(args[1:])
	default:
		fmt.Printf("unknown product command: %s\n", args[0])
	}
}

func handleOrder(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vendorhub order <list|status>")
		return
	}

	switch args[0] {
	case "list":
		listOrders(args[1:])
	case "status":
		updateOrderStatus(args[1:])
	default:
		fmt.Printf("unknown order command: %s\n", args[0])
	}
}

func handleAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: vendorhub admin <tenants|create-tenant|deactivate|purge> (requires VENDORHUB_ADMIN_TOKEN)")
		return
	}

	switch args[0] {
	case "tenants":
		adminListTenants(args[1:])
	case "create-tenant":
		adminCreateTenant(args[1:])
	case "deactivate":
		adminDeactivateTenant(args[1:])
	case "purge":
		adminPurgeTenant(args[1:])
	default:
		fmt.Printf("unknown admin command: %s\n", args[0])
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	tenant := fs.Int64("tenant", 0, "tenant ID")
	role := fs.String("role", "CUSTOMER", "role (STORE_OWNER, STAFF, CUSTOMER)")

	fs.Parse(args)

	if *username == "" || *email == "" || *password == "" || *tenant == 0 {
		fmt.Println("Error: username, email, password, and tenant are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]any{
		"username":  *username,
		"email":     *email,
		"password":  *password,
		"password2": *password,
		"tenant_id": *tenant,
		"role":      *role,
	}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *username)
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["access"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *username)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Product commands
func listProducts(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/products", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var page struct {
		Count   int                      `json:"count"`
		Results []map[string]interface{} `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&page)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSKU\tNAME\tPRICE\tSTOCK\tACTIVE")
	for _, p := range page.Results {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			p["id"], p["sku"], p["name"], p["price"], p["stock_quantity"], p["is_active"])
	}
	w.Flush()
}

// Order commands
func listOrders(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/orders", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var page struct {
		Count   int                      `json:"count"`
		Results []map[string]interface{} `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&page)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tSTATUS\tTOTAL\tCREATED")
	for _, o := range page.Results {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			o["id"], o["order_number"], o["status"], o["total_amount"], o["created_at"])
	}
	w.Flush()
}

func updateOrderStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.Int64("id", 0, "order ID")
	status := fs.String("to", "", "new status (PENDING, CONFIRMED, PROCESSING, SHIPPED, DELIVERED, CANCELLED)")

	fs.Parse(args)

	if *id == 0 || *status == "" {
		fmt.Println("Error: id and to are required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"status": *status})
	req, _ := http.NewRequest("POST",
		getAPIURL()+"/orders/"+strconv.FormatInt(*id, 10)+"/update_status",
		bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Order %d -> %s\n", *id, *status)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Status update failed: %v\n", result)
	}
}

// Admin commands
func adminListTenants(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/admin/tenants", nil)
	addAdminHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var page struct {
		Count   int                      `json:"count"`
		Results []map[string]interface{} `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&page)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTORE\tSUBDOMAIN\tACTIVE")
	for _, t := range page.Results {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", t["id"], t["store_name"], t["subdomain"], t["is_active"])
	}
	w.Flush()
}

func adminCreateTenant(args []string) {
	fs := flag.NewFlagSet("create-tenant", flag.ExitOnError)
	name := fs.String("name", "", "store name")
	subdomain := fs.String("subdomain", "", "subdomain")
	email := fs.String("email", "", "contact email")

	fs.Parse(args)

	if *name == "" || *subdomain == "" || *email == "" {
		fmt.Println("Error: name, subdomain, and email are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"store_name":    *name,
		"subdomain":     *subdomain,
		"contact_email": *email,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/admin/tenants", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAdminHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Tenant created: %s\n", *name)
	} else {
		fmt.Printf("✗ Tenant creation failed: %v\n", result)
	}
}

func adminDeactivateTenant(args []string) {
	fs := flag.NewFlagSet("deactivate", flag.ExitOnError)
	id := fs.Int64("id", 0, "tenant ID")

	fs.Parse(args)

	if *id == 0 {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest("POST",
		getAPIURL()+"/admin/tenants/"+strconv.FormatInt(*id, 10)+"/deactivate", nil)
	addAdminHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 204 {
		fmt.Printf("✓ Tenant %d deactivated\n", *id)
	} else {
		fmt.Printf("✗ Deactivation failed (status %d)\n", resp.StatusCode)
	}
}

func adminPurgeTenant(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	id := fs.Int64("id", 0, "tenant ID")
	confirm := fs.String("confirm", "", "store name, typed back to confirm the purge")

	fs.Parse(args)

	if *id == 0 || *confirm == "" {
		fmt.Println("Error: id and confirm are required")
		fmt.Println("Purge permanently deletes the tenant and all of its users, products and orders.")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"confirm_store_name": *confirm})
	req, _ := http.NewRequest("POST",
		getAPIURL()+"/admin/tenants/"+strconv.FormatInt(*id, 10)+"/purge",
		bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAdminHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 204 {
		fmt.Printf("✓ Tenant %d purged\n", *id)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Purge failed: %v\n", result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("VENDORHUB_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.vendorhub/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.vendorhub", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func addAdminHeader(req *http.Request) {
	token := os.Getenv("VENDORHUB_ADMIN_TOKEN")
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
}

func printUsage() {
	fmt.Print(`VendorHub CLI

Usage:
  vendorhub <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  product  Product operations (list)
  order    Order operations (list, status)
  admin    Tenant lifecycle (tenants, create-tenant, deactivate, purge) - requires VENDORHUB_ADMIN_TOKEN
  help     Show this help message

Environment Variables:
  VENDORHUB_API          API endpoint (default: http://localhost:8080/api)
  VENDORHUB_ADMIN_TOKEN  Static token for the admin surface

Examples:
  vendorhub auth login -username alice -password secret
  vendorhub product list
  vendorhub order status -id 42 -to SHIPPED
  vendorhub admin purge -id 3 -confirm "Alice's Store"
`)
}
