package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/manage"
	"github.com/tstromberg/albumstack/pkg/settings"
	"github.com/tstromberg/albumstack/pkg/stack"
	"github.com/tstromberg/albumstack/pkg/view"
)

var (
	inDir      = flag.String("in", "", "Location of input directory (built-in album if empty)")
	outDir     = flag.String("out", "", "Location to save the current marker and photo to")
	configPath = flag.String("config", "", "Path to a TOML or YAML settings file")
	watchFlag  = flag.Bool("watch", false, "watch for changes to inDir and reload the catalog")
	script     = flag.String("script", "", "comma-separated selections to apply instead of reading stdin")
	listen     = flag.Bool("listen", false, "accept selections and serve the out directory via HTTP")
	addr       = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	s, err := settings.Load(*configPath)
	if err != nil {
		klog.Exitf("settings: %v", err)
	}

	cat, err := openCatalog(*inDir, s)
	if err != nil {
		klog.Exitf("catalog: %v", err)
	}
	ps := cat.Photos()
	if len(ps) == 0 {
		klog.Exitf("no photos found in %s", *inDir)
	}
	klog.Infof("loaded %d photos", len(ps))

	loc := &view.Location{Dir: *outDir, Zoom: 10}
	journal := &view.Journal{ExportDir: *outDir}
	c, err := stack.New(stack.Options{
		Decoder:   cat.decoder,
		Location:  loc,
		Animator:  s.Timer(),
		Info:      &view.Info{Out: os.Stdout},
		Listener:  journal,
		CacheSize: s.CacheSize,
		Stale:     s.Stale,
		Failure:   s.Failure,
	})
	if err != nil {
		klog.Exitf("stack: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.Initialize(ctx, ps[0]); err != nil {
		klog.Exitf("initialize failed: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Run(gctx)
	})

	g.Go(func() error {
		defer cancel()
		if err := view.Lines(gctx, input(gctx), cat.Photos, c.Select); err != nil {
			return err
		}
		if *watchFlag || *listen {
			<-gctx.Done()
			return nil
		}
		return c.Idle(gctx)
	})

	if *watchFlag && *inDir != "" {
		g.Go(func() error {
			return watch(gctx, cat)
		})
	}

	if *listen {
		g.Go(func() error {
			return serve(gctx, manage.New(c, cat.Photos).Handler(*outDir), *addr)
		})
	}

	err = g.Wait()
	loc.Flush()
	journal.Flush()
	if err != nil && !errors.Is(err, context.Canceled) {
		klog.Exitf("run failed: %v", err)
	}
}

// input returns the selection source: the -script flag, or stdin until ctx is done.
func input(ctx context.Context) io.Reader {
	if *script != "" {
		return strings.NewReader(strings.ReplaceAll(*script, ",", "\n"))
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := io.Copy(pw, os.Stdin)
		pw.CloseWithError(err)
	}()
	context.AfterFunc(ctx, func() { pr.CloseWithError(ctx.Err()) })
	return pr
}

// serve serves the manage endpoints via HTTP until ctx is done
func serve(ctx context.Context, h http.Handler, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	context.AfterFunc(ctx, func() {
		if err := srv.Close(); err != nil {
			klog.Warningf("close: %v", err)
		}
	})

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// watch watches the catalog directories for changes and reloads
func watch(ctx context.Context, cat *catalog) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs := []string{cat.root}
	for _, p := range cat.Photos() {
		dirs = append(dirs, filepath.Dir(p.Path))
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if err := cat.Reload(); err != nil {
					klog.Warningf("reload failed: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch error: %v", err)
		}
	}
}
