// Command gradekit 运行学生成绩预测与解释服务，或以命令行方式执行单次任务。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rushteam/gradekit/config"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/dataset"
	"github.com/rushteam/gradekit/metrics"
	"github.com/rushteam/gradekit/server"
	"github.com/rushteam/gradekit/service"
	"github.com/rushteam/gradekit/store"
)

const usage = `gradekit: student performance prediction and explanation

Usage:
  gradekit <command> [flags]

Commands:
  serve     start the HTTP API (POST /predict, POST /explain/global, GET /schema/{model})
  predict   predict one record (-record JSON or -student ID)
  global    global feature importance over the dataset
  cluster   group students into personas by score
  compare   evaluate every model on the dataset
  insights  at-risk rate grouped by a categorical field
  trends    per-term subject means (-csv writes the filtered dataset)
  publish   copy local model artifacts into Redis (for source: redis)

Run "gradekit <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "gradekit: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "gradekit.yaml", "path to YAML config")

	switch cmd {
	case "serve":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return serve(ctx, *configPath)

	case "predict":
		modelName := fs.String("model", "", "model name (required)")
		extent := fs.String("extent", "local", "explain extent: local or none")
		record := fs.String("record", "", "student record as JSON")
		student := fs.String("student", "", "student id (read from Feast)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			ext, err := core.ParseExplainExtent(*extent)
			if err != nil {
				return err
			}
			rec, err := resolveRecord(ctx, p, *record, *student)
			if err != nil {
				return err
			}
			res, err := p.RunPrediction(ctx, rec, *modelName, ext)
			if err != nil {
				return err
			}
			return printJSON(res)
		})

	case "global":
		modelName := fs.String("model", "", "model name (required)")
		top := fs.Int("top", 0, "only print the top N features")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			out, err := p.ExplainGlobal(ctx, *modelName, nil)
			if err != nil {
				return err
			}
			if *top > 0 && *top < len(out) {
				out = out[:*top]
			}
			return printJSON(out)
		})

	case "cluster":
		k := fs.Int("k", 0, "number of clusters (default 4 named personas)")
		record := fs.String("record", "", "assign this student record (JSON) to a persona")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			personas, err := p.ClusterPersonas(*k)
			if err != nil {
				return err
			}
			if *record != "" {
				rec, err := resolveRecord(ctx, p, *record, "")
				if err != nil {
					return err
				}
				return printJSON(personas.Assign(rec))
			}
			students := make([]studentPersona, len(personas.Assignments))
			for i, r := range p.Dataset().Rows {
				students[i] = studentPersona{
					Index:        i,
					Persona:      personas.Persona(i),
					AverageScore: r.AverageScore,
					Performance:  r.Performance,
				}
			}
			return printJSON(map[string]any{"clusters": personas.Clusters, "students": students})
		})

	case "compare":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			evals, err := p.CompareModels(ctx)
			if err != nil {
				return err
			}
			return printJSON(evals)
		})

	case "insights":
		field := fs.String("field", core.FieldPrepCourse, "categorical field to group by")
		filter := filterFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			f := filter()
			groups, err := p.Insights(*field, f)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"summary": p.Summary(f), "groups": groups})
		})

	case "trends":
		filter := filterFlags(fs)
		csvPath := fs.String("csv", "", "also write the filtered dataset as CSV to this path")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withPredictor(ctx, *configPath, func(p *service.Predictor) error {
			f := filter()
			trends, err := p.Trends(f)
			if err != nil {
				return err
			}
			if *csvPath != "" {
				if err := exportCSV(p, *csvPath, f); err != nil {
					return err
				}
			}
			return printJSON(trends)
		})

	case "publish":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return publish(ctx, *configPath)

	case "-h", "--help", "help":
		fmt.Print(usage)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withPredictor(ctx context.Context, path string, fn func(*service.Predictor) error) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	p, err := service.New(ctx, cfg, service.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func resolveRecord(ctx context.Context, p *service.Predictor, raw, studentID string) (core.StudentRecord, error) {
	var rec core.StudentRecord
	switch {
	case raw != "":
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return rec, fmt.Errorf("parse -record: %w", err)
		}
		return rec, nil
	case studentID != "":
		recs, err := p.RecordsByID(ctx, []string{studentID})
		if err != nil {
			return rec, err
		}
		return recs[0], nil
	default:
		return rec, errors.New("one of -record or -student is required")
	}
}

func serve(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)
	m := metrics.New()
	p, err := service.New(ctx, cfg, service.WithLogger(logger), service.WithMetrics(m))
	if err != nil {
		return err
	}
	defer p.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(p, m.Handler(), logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// publish 读取配置中的本地产物路径，写入 redis 配置指向的实例
func publish(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return errors.New("publish: redis.addr is required")
	}
	rs, err := store.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rs.Close()

	out := make(map[string][]string, len(cfg.Models))
	for _, m := range cfg.Models {
		keys, err := store.Publish(ctx, rs, m.Name, store.ModelFiles{Artifact: m.Artifact, Meta: m.Meta, Labels: m.Labels})
		if err != nil {
			return err
		}
		out[m.Name] = keys
	}
	return printJSON(out)
}

type studentPersona struct {
	Index        int     `json:"index"`
	Persona      string  `json:"persona"`
	AverageScore float64 `json:"average_score"`
	Performance  string  `json:"performance"`
}

// filterFlags 注册数据集筛选参数，返回解析后构造 Filter 的函数
func filterFlags(fs *flag.FlagSet) func() dataset.Filter {
	gender := fs.String("gender", "", "filter: gender")
	prep := fs.String("prep", "", "filter: test preparation course")
	race := fs.String("race", "", "filter: race/ethnicity")
	lunch := fs.String("lunch", "", "filter: lunch")
	parent := fs.String("parent", "", "filter: parental level of education")
	return func() dataset.Filter {
		return dataset.Filter{
			Gender:        *gender,
			PrepCourse:    *prep,
			RaceEthnicity: *race,
			Lunch:         *lunch,
			ParentEdu:     *parent,
		}
	}
}

func exportCSV(p *service.Predictor, path string, f dataset.Filter) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := p.ExportCSV(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
