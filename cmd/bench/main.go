package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
)

// testSentence is one benchmark input with its expected language.
type testSentence struct {
	Text string
	Lang string
}

var testSentences = []testSentence{
	// Polish - fillers
	{"yyy no więc jakby to jest ważne", "pl"},
	{"eee znaczy generalnie chciałem powiedzieć", "pl"},
	// Polish - word corrections (splits)
	{"napewno to jest na prawdę ważne", "pl"},
	{"wogóle nie wiem co powiedzieć narazie", "pl"},
	{"poprostu przedewszystkim trzeba to zrobić", "pl"},
	// Polish - word corrections (joins)
	{"dla tego po mimo wszystko udało się", "pl"},
	{"po nie waż to jest na przeciwko", "pl"},
	// Polish - ITN
	{"mam dwadzieścia trzy lata i mieszkam tu pięć lat", "pl"},
	// Polish - long input
	{"yyy no więc jakby generalnie chciałem powiedzieć że napewno wogóle poprostu to jest bardzo ważna sprawa i trzeba to koniecznie omówić na spotkaniu", "pl"},
	// Polish - short/clean
	{"dzień dobry", "pl"},
	{"proszę o pomoc w tej sprawie", "pl"},
	// English - fillers
	{"um like you know basically its fine", "en"},
	{"uh i mean sort of actually right", "en"},
	// English - word corrections (homophones)
	{"your going to loose alot", "en"},
	{"its going to effect the weather or not we go", "en"},
	{"there going to be better then us", "en"},
	{"i would of done it if its possible", "en"},
	// English - ITN
	{"i have twenty three cats and five dogs", "en"},
	// English - long input
	{"um like you know basically your going to loose alot of time if you dont figure out weather or not its going to work and there not helping", "en"},
	// English - short/clean
	{"hello world", "en"},
}

// sample is one raw latency measurement, exported to parquet.
type sample struct {
	Sentence  string  `parquet:"sentence"`
	Language  string  `parquet:"language"`
	Round     int32   `parquet:"round"`
	LatencyMS float64 `parquet:"latency_ms"`
}

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8787", "Server base URL")
		rounds      = flag.Int("rounds", 3, "Number of measured rounds")
		warmup      = flag.Int("warmup", 1, "Number of warmup rounds to discard")
		parquetPath = flag.String("parquet", "", "Optional path to export raw latency samples as parquet")
	)
	flag.Parse()

	url := strings.TrimRight(*baseURL, "/")
	if err := run(url, *rounds, *warmup, *parquetPath); err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}
}

func run(url string, rounds, warmup int, parquetPath string) error {
	if rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", rounds)
	}
	if warmup < 0 {
		return fmt.Errorf("warmup must not be negative, got %d", warmup)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	totalRequests := len(testSentences) * rounds
	fmt.Printf("Benchmark: %d requests (%d sentences x %d rounds), %d warmup round(s)\n",
		totalRequests, len(testSentences), rounds, warmup)
	fmt.Printf("Target: %s/v1/chat/completions\n\n", url)

	for w := 0; w < warmup; w++ {
		for _, s := range testSentences {
			if _, err := sendRequest(client, url, s.Text); err != nil {
				return fmt.Errorf("warmup: %w", err)
			}
		}
	}

	// timings[i] holds latencies for sentence i across rounds
	timings := make([][]float64, len(testSentences))
	var all []float64
	var samples []sample
	wallStart := time.Now()

	for r := 0; r < rounds; r++ {
		for i, s := range testSentences {
			ms, err := sendRequest(client, url, s.Text)
			if err != nil {
				return fmt.Errorf("round %d, sentence %d: %w", r+1, i+1, err)
			}
			timings[i] = append(timings[i], ms)
			all = append(all, ms)
			samples = append(samples, sample{
				Sentence:  s.Text,
				Language:  s.Lang,
				Round:     int32(r + 1),
				LatencyMS: ms,
			})
		}
	}

	wallTotal := time.Since(wallStart)
	printReport(timings, all, wallTotal)

	if parquetPath != "" {
		if err := exportParquet(parquetPath, samples); err != nil {
			return fmt.Errorf("parquet export: %w", err)
		}
		fmt.Printf("\nRaw samples written to %s\n", parquetPath)
	}
	return nil
}

// sendRequest posts one chat completion and returns the latency in ms.
func sendRequest(client *http.Client, url, text string) (float64, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model": "cleanscribe",
		"messages": []map[string]string{
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Post(url+"/v1/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return float64(time.Since(start).Nanoseconds()) / 1e6, nil
}

func printReport(timings [][]float64, all []float64, wallTotal time.Duration) {
	const trunc = 40

	fmt.Printf(" %-*s  Lang   Mean ms\n", trunc, "Sentence (truncated)")
	fmt.Println(" " + strings.Repeat("─", trunc+18))
	for i, s := range testSentences {
		display := []rune(s.Text)
		if len(display) > trunc {
			display = display[:trunc]
		}
		fmt.Printf(" %-*s  %-4s  %8.1f\n", trunc, string(display), s.Lang, mean(timings[i]))
	}

	sorted := append([]float64(nil), all...)
	sort.Float64s(sorted)
	n := len(sorted)

	fmt.Println()
	fmt.Println(" Overall latency (ms)")
	fmt.Println(" " + strings.Repeat("─", 21))
	fmt.Printf(" Min:   %8.1f\n", sorted[0])
	fmt.Printf(" Max:   %8.1f\n", sorted[n-1])
	fmt.Printf(" Mean:  %8.1f\n", mean(all))
	fmt.Printf(" P50:   %8.1f\n", percentile(sorted, 0.50))
	fmt.Printf(" P95:   %8.1f\n", percentile(sorted, 0.95))
	fmt.Printf(" P99:   %8.1f\n", percentile(sorted, 0.99))
	fmt.Printf(" Total: %7.1fs\n", wallTotal.Seconds())
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func exportParquet(path string, samples []sample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[sample](file)
	if _, err := writer.Write(samples); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
