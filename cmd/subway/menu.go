package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"subway-map/internal/query"
	"subway-map/internal/subway"
)

type menu struct {
	engine *query.Engine
	out    io.Writer
	lines  <-chan string
}

// runMenu serves the interactive text menu until the input ends, the user
// quits, or ctx is cancelled.
func runMenu(ctx context.Context, in io.Reader, out io.Writer, engine *query.Engine) error {
	m := &menu{engine: engine, out: out, lines: scanLines(ctx, in)}
	for {
		fmt.Fprintln(out, "请选择")
		fmt.Fprintln(out, "1. 输出地铁中转站")
		fmt.Fprintln(out, "2. 查找附近的站点")
		fmt.Fprintln(out, "3. 查找所有路径")
		fmt.Fprintln(out, "0. 退出")

		choice, ok := m.read(ctx)
		if !ok {
			return nil
		}
		switch choice {
		case "1":
			m.transfers()
		case "2":
			if !m.nearby(ctx) {
				return nil
			}
		case "3":
			if !m.paths(ctx) {
				return nil
			}
		case "0", "q", "quit", "exit":
			return nil
		case "":
		default:
			fmt.Fprintln(out, "无效选择，请重新选择。")
		}
	}
}

// scanLines feeds trimmed input lines to the returned channel until in ends
// or ctx is done. A Read that never returns still pins the goroutine; for
// os.Stdin that lasts until the process exits.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// read returns the next input line; ok is false once input is exhausted or
// the context is done.
func (m *menu) read(ctx context.Context) (line string, ok bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok = <-m.lines:
		return line, ok
	}
}

func (m *menu) prompt(ctx context.Context, label string) (string, bool) {
	fmt.Fprintln(m.out, label)
	return m.read(ctx)
}

func (m *menu) transfers() {
	stations := m.engine.Transfers()
	fmt.Fprintf(m.out, "中转站 (%d):\n", len(stations))
	for _, st := range stations {
		fmt.Fprintf(m.out, "  %s\n", st)
	}
}

func (m *menu) nearby(ctx context.Context) bool {
	name, ok := m.prompt(ctx, "输入站点名称:")
	if !ok {
		return false
	}
	raw, ok := m.prompt(ctx, "输入距离(km):")
	if !ok {
		return false
	}
	maxKm, err := strconv.ParseFloat(raw, 64)
	if err != nil || maxKm < 0 || math.IsNaN(maxKm) {
		fmt.Fprintf(m.out, "无效距离: %s\n", raw)
		return true
	}

	found, err := m.engine.Nearby(name, maxKm)
	if err != nil {
		m.reportError(err, name)
		return true
	}
	fmt.Fprintf(m.out, "附近站点 (%d):\n", len(found))
	for _, n := range found {
		fmt.Fprintf(m.out, "  %s %g km\n", n.Name, n.DistanceKm)
	}
	return true
}

func (m *menu) paths(ctx context.Context) bool {
	from, ok := m.prompt(ctx, "输入起点站:")
	if !ok {
		return false
	}
	to, ok := m.prompt(ctx, "输入终点站:")
	if !ok {
		return false
	}

	paths, err := m.engine.Paths(from, to)
	if err != nil {
		m.reportError(err, from+" 或 "+to)
		return true
	}
	fmt.Fprintf(m.out, "共 %d 条路径:\n", len(paths))
	for i, p := range paths {
		fmt.Fprintf(m.out, "  %d. %s\n", i+1, strings.Join(p, " -> "))
	}
	return true
}

func (m *menu) reportError(err error, subject string) {
	var nf *subway.NotFoundError
	if errors.As(err, &nf) {
		fmt.Fprintf(m.out, "站点不存在: %s\n", nf.Name)
		return
	}
	fmt.Fprintf(m.out, "查询失败 (%s): %v\n", subject, err)
}
