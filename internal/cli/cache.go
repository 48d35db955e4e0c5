package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/histograde/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the classification cache",
	Long: `The classification cache keeps rule cascade verdicts on disk
(cache.dir) so unchanged records are not re-classified across runs.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := diskCache()
		if err != nil {
			return err
		}

		files, size, err := dirUsage(dc.Dir())
		if err != nil {
			return err
		}
		fmt.Printf("Cache directory: %s\n", dc.Dir())
		fmt.Printf("Entries:         %s\n", humanize.Comma(int64(files)))
		fmt.Printf("Size:            %s\n", humanize.Bytes(uint64(size)))
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired and outdated cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := diskCache()
		if err != nil {
			return err
		}
		removed, err := dc.Prune(time.Now())
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Printf("✓ Removed %s stale entries from %s\n", humanize.Comma(int64(removed)), dc.Dir())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := diskCache()
		if err != nil {
			return err
		}
		if err := dc.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("✓ Cleared %s\n", dc.Dir())
		return nil
	},
}

func diskCache() (*cache.DiskCache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		return nil, fmt.Errorf("cache.dir is not set; the cache is memory only")
	}
	return cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL), nil
}

// dirUsage counts cache entry files and their total size. A missing
// directory is an empty cache.
func dirUsage(dir string) (files int, size int64, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) && path == dir {
				return filepath.SkipDir
			}
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size, err
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
