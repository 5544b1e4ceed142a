package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/tategaki/internal/cli"
	"github.com/hyperjump/tategaki/internal/generator"
	"github.com/hyperjump/tategaki/internal/models"
	"go.uber.org/zap"
)

// optionalBool is a boolean flag that remembers whether it was given.
type optionalBool struct {
	value *bool
}

func (b *optionalBool) String() string {
	if b.value == nil {
		return ""
	}
	return strconv.FormatBool(*b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value = &v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

// argsReorder moves flags that follow the positional argument to the front, since
// the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// isURL reports whether source names a remote document rather than a local file.
func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.Contains(lower, "docs.google.com/")
}

// coverType maps a cover file extension to the request's coverType.
func coverType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return string(models.ImageJPEG), nil
	case ".png":
		return string(models.ImagePNG), nil
	}
	return "", fmt.Errorf("unsupported cover image %q (want .jpg, .jpeg or .png)", filepath.Base(path))
}

// outputPath resolves --out: empty means the current directory, an existing
// directory receives the generated file name.
func outputPath(out, filename string) string {
	if out == "" {
		return filename
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}

func runConvert() {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	out := fs.String("out", "", "output file or directory")
	title := fs.String("title", "", "book title")
	author := fs.String("author", "", "author")
	publisher := fs.String("publisher", "", "publisher")
	issuer := fs.String("issuer", "", "issuer")
	date := fs.String("date", "", "publication date")
	edition := fs.String("edition", "", "edition")
	notes := fs.String("notes", "", "colophon notes")
	cover := fs.String("cover", "", "cover image (.jpg, .jpeg or .png)")
	noHistory := fs.Bool("no-history", false, "do not record the generation")
	var tcyNumbers, tcyLatin, toc optionalBool
	fs.Var(&tcyNumbers, "tcy-numbers", "set digit runs horizontally")
	fs.Var(&tcyLatin, "tcy-latin", "set short Latin runs horizontally")
	fs.Var(&toc, "toc", "include a contents page")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Println("Usage: tategaki convert [flags] <url|file.html>")
		os.Exit(1)
	}
	source := fs.Arg(0)

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, !*noHistory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	req := &models.GenerateRequest{
		Title:           *title,
		Author:          *author,
		PublicationDate: *date,
		Publisher:       *publisher,
		Issuer:          *issuer,
		Edition:         *edition,
		ColophonNotes:   strings.ReplaceAll(*notes, `\n`, "\n"),
		Options: models.GenerateOptions{
			TcyNumbers: tcyNumbers.value,
			TcyLatin:   tcyLatin.value,
			TocPage:    toc.value,
		},
	}
	if *cover != "" {
		ct, err := coverType(*cover)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		data, err := os.ReadFile(*cover)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read cover: %v\n", err)
			os.Exit(1)
		}
		req.CoverBase64 = base64.StdEncoding.EncodeToString(data)
		req.CoverType = ct
	}

	result, err := convert(context.Background(), components.Generator, source, req)
	if err != nil {
		resp := models.ResponseFor(err)
		logger.Debug("conversion failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Conversion failed [%s]: %s\n", resp.ErrorCode, resp.Message)
		os.Exit(1)
	}
	dest := outputPath(*out, result.Filename)
	if err := os.WriteFile(dest, result.Data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write book: %v\n", err)
		os.Exit(1)
	}
	cli.WriteConverted(os.Stdout, dest, result.Title, len(result.Data), result.Digest)
}

// convert fetches a URL or reads a local export and generates the book.
func convert(ctx context.Context, gen *generator.Generator, source string, req *models.GenerateRequest) (*generator.Output, error) {
	if isURL(source) {
		req.URL = source
		return gen.Generate(ctx, req)
	}
	return gen.GenerateFromFile(ctx, source, req)
}
