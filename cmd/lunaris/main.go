// Command lunaris is the Lunaris client: an interactive REPL, or a
// script runner when given a file argument, both driving a server over
// the length-prefixed JSON wire protocol (spec.md §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/aalyth/lunaris-go/internal/protocol"
	"github.com/aalyth/lunaris-go/internal/value"
)

const defaultAddr = "127.0.0.1:7435"

var flagAddr = flag.String("addr", "", "server address (default "+defaultAddr+", or $LUNARIS_ADDR)")

func resolveAddr() string {
	if *flagAddr != "" {
		return *flagAddr
	}
	if v := os.Getenv("LUNARIS_ADDR"); v != "" {
		return v
	}
	return defaultAddr
}

func main() {
	flag.Parse()

	addr := resolveAddr()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect error:", err)
		os.Exit(1)
	}
	defer conn.Close()

	if args := flag.Args(); len(args) > 0 {
		runScript(conn, args[0])
		return
	}
	runREPL(conn)
}

// runScript feeds a ';'-delimited SQL file to the server one statement at
// a time, exiting non-zero on the first error.
func runScript(conn net.Conn, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}
	for _, stmt := range strings.Split(string(data), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		resp, err := execute(conn, stmt)
		if err != nil {
			fmt.Fprintln(os.Stderr, "connection error:", err)
			os.Exit(1)
		}
		if resp.Error != nil {
			fmt.Fprintln(os.Stderr, "error:", resp.Error.Message)
			os.Exit(1)
		}
		printResult(resp)
	}
}

func runREPL(conn net.Conn) {
	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}
	if interactive {
		fmt.Println("lunaris client. Terminate a statement with ';'. 'exit' or 'quit' to leave.")
	}

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	var buf strings.Builder
	for {
		if interactive {
			if buf.Len() == 0 {
				fmt.Print("lunaris> ")
			} else {
				fmt.Print("     ... ")
			}
		}
		if !sc.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(sc.Text())
		trimmed := strings.ToLower(strings.TrimSuffix(line, ";"))
		if buf.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			return
		}
		if line == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte(' ')
		if !strings.HasSuffix(line, ";") {
			continue
		}
		stmt := strings.TrimSpace(buf.String())
		buf.Reset()

		resp, err := execute(conn, stmt)
		if err != nil {
			fmt.Fprintln(os.Stderr, "connection error:", err)
			return
		}
		if resp.Error != nil {
			fmt.Println("error:", resp.Error.Message)
			continue
		}
		printResult(resp)
	}
}

func execute(conn net.Conn, sql string) (protocol.Response, error) {
	if err := protocol.SendMessage(conn, protocol.Request{SQL: sql}); err != nil {
		return protocol.Response{}, err
	}
	var resp protocol.Response
	ok, err := protocol.RecvMessage(conn, &resp)
	if err != nil {
		return protocol.Response{}, err
	}
	if !ok {
		return protocol.Response{}, fmt.Errorf("server closed the connection")
	}
	return resp, nil
}

func printResult(resp protocol.Response) {
	qr := resp.Ok
	if qr.ResultSet == nil {
		fmt.Println(qr.Message)
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(qr.ResultSet.Columns, "\t"))
	for _, row := range qr.ResultSet.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Println(qr.Message)
}

func formatValue(v value.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	return v.String()
}
