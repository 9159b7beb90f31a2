package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/overlap/internal/api"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
)

func handleQuery(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("query", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	runID := flags.String("run", "", "Run id (default: latest run of -seq/-frame)")
	seq := flags.String("seq", "", "Sequence id")
	frame := flags.String("frame", "", "Frame id")
	cam := flags.String("camera", "", "Camera whose image the points are in (required)")
	points := flags.String("points", "", "Query points: u,v for a point, four u,v;... for a box (required)")
	server := flags.String("server", "", "Query a running overlap server at this base URL instead of -db")
	asJSON := flags.Bool("json", false, "Print the full result as JSON")
	timeout := flags.Duration("timeout", 10*time.Second, "Request timeout with -server")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *cam == "" {
		return fmt.Errorf("-camera is required")
	}
	pts, err := parsePoints(*points)
	if err != nil {
		return err
	}
	req := api.QueryRequest{RunID: *runID, SequenceID: *seq, FrameID: *frame, Camera: *cam, Points: pts}

	common.setupLogging(os.Stderr)

	var resp *api.QueryResponse
	if *server != "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		resp, err = api.NewClient(*server, nil).Query(ctx, req)
	} else {
		tuning, terr := common.tuning()
		if terr != nil {
			return terr
		}
		db, derr := sqlite.OpenDB(common.dbPath)
		if derr != nil {
			return derr
		}
		defer db.Close()
		resp, err = queryLocal(sqlite.NewStore(db), query.NewEngine(query.ParamsFromTuning(tuning)), req)
	}
	if err != nil {
		return err
	}
	return printQuery(out, resp, *asJSON)
}

// queryLocal evaluates req against a run in store without recording it.
func queryLocal(store *sqlite.Store, engine *query.Engine, req api.QueryRequest) (*api.QueryResponse, error) {
	var run *sqlite.Run
	var err error
	switch {
	case req.RunID != "":
		run, err = store.GetRun(req.RunID)
	case req.SequenceID != "" && req.FrameID != "":
		run, err = store.LatestRun(req.SequenceID, req.FrameID)
	default:
		return nil, fmt.Errorf("-run or -seq and -frame are required")
	}
	if err != nil {
		return nil, err
	}
	rel, err := store.LoadRelation(run.RunID)
	if err != nil {
		return nil, err
	}
	frame, err := store.LoadFrame(run.RunID)
	if err != nil {
		return nil, err
	}
	res, err := engine.Query(req.Camera, req.Points, frame, rel)
	if err != nil {
		return nil, err
	}
	return &api.QueryResponse{RunID: run.RunID, Result: res}, nil
}

func printQuery(out io.Writer, resp *api.QueryResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	res := resp.Result
	fmt.Fprintf(out, "run %s, camera %s, %s query\n", resp.RunID, res.Camera, res.Mode)
	for _, p := range res.Points {
		fmt.Fprintln(out, p.Description)
	}
	if res.Mode == query.ModeBox {
		fmt.Fprintf(out, "box overlaps: proven %v, assumed %v\n", res.Proven, res.Assumed)
	}
	return nil
}
