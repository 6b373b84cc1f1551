// Command generators produces sample invoice and goods receipt CSV files
// for exercising the reconciliation pipeline end to end.
//
// The generated dataset pairs every invoice with a receipt by PO number,
// then perturbs a configurable share of pairs: some receipts get amount
// variances, some diverge on dates, and some invoices are left without any
// receipt at all. The resulting files feed straight into invoice-recon run.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

// GeneratorConfig controls the shape of the generated dataset
type GeneratorConfig struct {
	Count           int
	StartDate       time.Time
	VarianceRate    float64
	UnmatchedRate   float64
	LinesPerInvoice int
	Seed            int64
	OutputDir       string
}

type invoicePair struct {
	id            int
	poNumber      string
	invoiceNumber string
	grnNumber     string
	vendor        vendorProfile
	invoiceDate   time.Time
	receiptDate   time.Time
	lines         []lineTemplate

	hasReceipt     bool
	amountVariance decimal.Decimal
}

type vendorProfile struct {
	name  string
	taxID string
}

type lineTemplate struct {
	description string
	hsnCode     string
	unit        string
	quantity    decimal.Decimal
	unitPrice   decimal.Decimal
	cgstRate    decimal.Decimal
	sgstRate    decimal.Decimal
}

var vendors = []vendorProfile{
	{name: "Sharma Steel Traders", taxID: "27AABCS1234F1Z5"},
	{name: "Patel Industrial Supplies", taxID: "24AADCP5678G1Z2"},
	{name: "Krishna Fasteners Pvt Ltd", taxID: "29AAACK9012H1Z8"},
	{name: "Mehta Pipes and Fittings", taxID: "27AALCM3456J1Z1"},
	{name: "Annapurna Hardware Co", taxID: "33AAHCA7890K1Z4"},
}

var catalog = []lineTemplate{
	{description: "Steel Rod 12mm", hsnCode: "72142000", unit: "KG", unitPrice: d("52.50"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "Hex Bolt M8", hsnCode: "73181500", unit: "PCS", unitPrice: d("4.75"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "MS Angle 40x40", hsnCode: "72166100", unit: "KG", unitPrice: d("48.00"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "PVC Pipe 2in", hsnCode: "39172390", unit: "MTR", unitPrice: d("85.00"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "Welding Electrode E6013", hsnCode: "83111000", unit: "BOX", unitPrice: d("320.00"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "GI Sheet 0.8mm", hsnCode: "72104900", unit: "KG", unitPrice: d("68.25"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "Bearing 6204ZZ", hsnCode: "84821011", unit: "PCS", unitPrice: d("145.00"), cgstRate: d("9"), sgstRate: d("9")},
	{description: "Cutting Disc 4in", hsnCode: "68042210", unit: "PCS", unitPrice: d("28.50"), cgstRate: d("9"), sgstRate: d("9")},
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func main() {
	var (
		count         = flag.Int("count", 100, "Number of invoices to generate")
		startDate     = flag.String("start-date", "2024-01-01", "Earliest invoice date (YYYY-MM-DD)")
		varianceRate  = flag.Float64("variance-rate", 0.2, "Share of matched pairs given an amount variance")
		unmatchedRate = flag.Float64("unmatched-rate", 0.1, "Share of invoices left without a receipt")
		linesPer      = flag.Int("lines-per-invoice", 3, "Line items per invoice")
		seed          = flag.Int64("seed", 0, "Random seed, 0 uses current time")
		outputDir     = flag.String("output-dir", "generated", "Output directory for the CSV files")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("invalid start date: %v", err)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	config := &GeneratorConfig{
		Count:           *count,
		StartDate:       start,
		VarianceRate:    *varianceRate,
		UnmatchedRate:   *unmatchedRate,
		LinesPerInvoice: *linesPer,
		Seed:            *seed,
		OutputDir:       *outputDir,
	}

	if err := generate(config); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

func generate(config *GeneratorConfig) error {
	rng := rand.New(rand.NewSource(config.Seed))

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	pairs := buildPairs(config, rng)

	files := map[string]func(string, []*invoicePair) error{
		"invoices.csv":      writeInvoices,
		"invoice_lines.csv": writeInvoiceLines,
		"grns.csv":          writeReceipts,
		"grn_lines.csv":     writeReceiptLines,
	}
	for name, write := range files {
		path := filepath.Join(config.OutputDir, name)
		if err := write(path, pairs); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	matched, varied, unmatched := 0, 0, 0
	for _, pair := range pairs {
		switch {
		case !pair.hasReceipt:
			unmatched++
		case !pair.amountVariance.IsZero():
			varied++
		default:
			matched++
		}
	}
	fmt.Printf("generated %d invoices: %d clean, %d with variances, %d unmatched (seed %d)\n",
		len(pairs), matched, varied, unmatched, config.Seed)
	return nil
}

func buildPairs(config *GeneratorConfig, rng *rand.Rand) []*invoicePair {
	pairs := make([]*invoicePair, 0, config.Count)

	for i := 1; i <= config.Count; i++ {
		invoiceDate := config.StartDate.AddDate(0, 0, rng.Intn(300))
		pair := &invoicePair{
			id:            i,
			poNumber:      fmt.Sprintf("PO-%04d", 1000+i),
			invoiceNumber: fmt.Sprintf("INV-%04d", i),
			grnNumber:     fmt.Sprintf("GRN-%04d", 5000+i),
			vendor:        vendors[rng.Intn(len(vendors))],
			invoiceDate:   invoiceDate,
			receiptDate:   invoiceDate.AddDate(0, 0, -rng.Intn(10)),
			hasReceipt:    rng.Float64() >= config.UnmatchedRate,
		}

		for j := 0; j < config.LinesPerInvoice; j++ {
			line := catalog[rng.Intn(len(catalog))]
			line.quantity = decimal.NewFromInt(int64(1 + rng.Intn(200)))
			pair.lines = append(pair.lines, line)
		}

		if pair.hasReceipt && rng.Float64() < config.VarianceRate {
			// Short receipt: between 1% and 10% of the subtotal missing.
			pct := decimal.NewFromFloat(0.01 + rng.Float64()*0.09)
			pair.amountVariance = subtotal(pair.lines).Mul(pct).Round(2)
		}

		pairs = append(pairs, pair)
	}
	return pairs
}

func subtotal(lines []lineTemplate) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.quantity.Mul(line.unitPrice))
	}
	return total.Round(2)
}

func taxes(lines []lineTemplate) (cgst, sgst decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	for _, line := range lines {
		lineSubtotal := line.quantity.Mul(line.unitPrice)
		cgst = cgst.Add(lineSubtotal.Mul(line.cgstRate).Div(hundred))
		sgst = sgst.Add(lineSubtotal.Mul(line.sgstRate).Div(hundred))
	}
	return cgst.Round(2), sgst.Round(2)
}

func writeCSV(path string, headers []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return err
	}
	return writer.WriteAll(rows)
}

func writeInvoices(path string, pairs []*invoicePair) error {
	headers := []string{
		"id", "po_number", "invoice_number", "grn_number", "vendor_name",
		"vendor_tax_id", "invoice_date", "subtotal_amount", "cgst_amount",
		"sgst_amount", "igst_amount", "total_amount",
	}

	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		sub := subtotal(pair.lines)
		cgst, sgst := taxes(pair.lines)
		total := sub.Add(cgst).Add(sgst)

		rows = append(rows, []string{
			fmt.Sprintf("%d", pair.id),
			pair.poNumber,
			pair.invoiceNumber,
			pair.grnNumber,
			pair.vendor.name,
			pair.vendor.taxID,
			pair.invoiceDate.Format("2006-01-02"),
			sub.StringFixed(2),
			cgst.StringFixed(2),
			sgst.StringFixed(2),
			"0.00",
			total.StringFixed(2),
		})
	}
	return writeCSV(path, headers, rows)
}

func writeInvoiceLines(path string, pairs []*invoicePair) error {
	headers := []string{
		"id", "invoice_id", "sequence", "description", "hsn_code", "unit",
		"quantity", "unit_price", "subtotal", "cgst_rate", "sgst_rate",
		"igst_rate", "line_total",
	}

	var rows [][]string
	lineID := 0
	hundred := decimal.NewFromInt(100)
	for _, pair := range pairs {
		for seq, line := range pair.lines {
			lineID++
			lineSubtotal := line.quantity.Mul(line.unitPrice).Round(2)
			tax := lineSubtotal.Mul(line.cgstRate.Add(line.sgstRate)).Div(hundred).Round(2)

			rows = append(rows, []string{
				fmt.Sprintf("%d", lineID),
				fmt.Sprintf("%d", pair.id),
				fmt.Sprintf("%d", seq+1),
				line.description,
				line.hsnCode,
				line.unit,
				line.quantity.StringFixed(2),
				line.unitPrice.StringFixed(2),
				lineSubtotal.StringFixed(2),
				line.cgstRate.StringFixed(2),
				line.sgstRate.StringFixed(2),
				"0.00",
				lineSubtotal.Add(tax).StringFixed(2),
			})
		}
	}
	return writeCSV(path, headers, rows)
}

func writeReceipts(path string, pairs []*invoicePair) error {
	headers := []string{
		"id", "po_number", "grn_number", "seller_invoice_number", "vendor_name",
		"vendor_tax_id", "receipt_date", "subtotal_amount", "cgst_amount",
		"sgst_amount", "igst_amount", "total_amount", "item_count",
	}

	var rows [][]string
	for _, pair := range pairs {
		if !pair.hasReceipt {
			continue
		}

		sub := subtotal(pair.lines).Sub(pair.amountVariance)
		cgst, sgst := taxes(pair.lines)
		total := sub.Add(cgst).Add(sgst)

		rows = append(rows, []string{
			fmt.Sprintf("%d", pair.id),
			pair.poNumber,
			pair.grnNumber,
			pair.invoiceNumber,
			pair.vendor.name,
			pair.vendor.taxID,
			pair.receiptDate.Format("2006-01-02"),
			sub.StringFixed(2),
			cgst.StringFixed(2),
			sgst.StringFixed(2),
			"0.00",
			total.StringFixed(2),
			fmt.Sprintf("%d", len(pair.lines)),
		})
	}
	return writeCSV(path, headers, rows)
}

func writeReceiptLines(path string, pairs []*invoicePair) error {
	headers := []string{
		"id", "po_number", "grn_number", "description", "hsn_code", "unit",
		"received_qty", "unit_price", "subtotal", "cgst_rate", "sgst_rate",
		"igst_rate", "line_total",
	}

	var rows [][]string
	lineID := 0
	hundred := decimal.NewFromInt(100)
	for _, pair := range pairs {
		if !pair.hasReceipt {
			continue
		}

		// Spread any receipt variance over the first line only, which keeps
		// the remaining lines clean matches.
		remaining := pair.amountVariance
		for _, line := range pair.lines {
			lineID++
			lineSubtotal := line.quantity.Mul(line.unitPrice).Round(2).Sub(remaining)
			remaining = decimal.Zero
			tax := lineSubtotal.Mul(line.cgstRate.Add(line.sgstRate)).Div(hundred).Round(2)

			rows = append(rows, []string{
				fmt.Sprintf("%d", lineID),
				pair.poNumber,
				pair.grnNumber,
				line.description,
				line.hsnCode,
				line.unit,
				line.quantity.StringFixed(2),
				line.unitPrice.StringFixed(2),
				lineSubtotal.StringFixed(2),
				line.cgstRate.StringFixed(2),
				line.sgstRate.StringFixed(2),
				"0.00",
				lineSubtotal.Add(tax).StringFixed(2),
			})
		}
	}
	return writeCSV(path, headers, rows)
}
