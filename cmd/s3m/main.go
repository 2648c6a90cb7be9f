// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/s3m/s3m/internal/config"
	"github.com/s3m/s3m/internal/logging"
	"github.com/s3m/s3m/pkg/s3m"
)

// Version information, injected at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
)

var (
	flagQuiet     bool
	flagVerbose   bool
	flagAccessKey string
	flagSecretKey string
	flagEndpoint  string
	flagRegion    string

	log *logrus.Entry
	cfg *config.File
)

var rootCmd = &cobra.Command{
	Use:   "s3m <file> <host>/<bucket>/<key>",
	Short: "Resumable streaming uploads to S3-compatible storage",
	Long: `s3m streams files to S3-compatible storage through signed multipart
uploads, resuming an interrupted transfer from its last acknowledged part
instead of starting over.

Running s3m with a file and a destination is shorthand for "put": the
two positional arguments select the object to upload and where it goes.
Every other operation (get, ls, rm, cb, share, acl, show) is an explicit
subcommand.

Destinations are written as <host>/<bucket>/<key>, where <host> names an
entry in the config file's "hosts:" map ($S3M_CONFIG, or
$XDG_CONFIG_HOME/s3m/config.yml, or $HOME/.config/s3m/config.yml).`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := logging.Normal
		switch {
		case flagVerbose:
			v = logging.Verbose
		case flagQuiet:
			v = logging.Quiet
		}
		log = logging.New(v)

		path, err := config.Path()
		if err != nil {
			return s3m.NewKindError(s3m.KindConfigError, "resolving config path", err)
		}
		cfg, err = config.Load(path, log)
		if err != nil {
			return s3m.NewKindError(s3m.KindConfigError, "loading config "+path, err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return cmd.Help()
		}
		return runPut(cmd, args)
	},
}

func init() {
	s3m.Version = version
	s3m.GitCommit = commit

	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagAccessKey, "access-key", "", "override the host profile's access key")
	rootCmd.PersistentFlags().StringVar(&flagSecretKey, "secret-key", "", "override the host profile's secret key")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "override the host profile's endpoint")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "override the host profile's region")

	registerPutFlags(rootCmd)
	rootCmd.AddCommand(getCmd, lsCmd, rmCmd, cbCmd, shareCmd, aclCmd, showCmd, versionCmd)
}

// resolveHost loads the named host profile from the config file and
// layers CLI flag / environment overrides on top, per spec.md §6's
// "CLI flag > environment > file > default" precedence.
func resolveHost(name string) (*s3m.HostProfile, error) {
	host, err := cfg.HostProfile(name)
	if err != nil {
		return nil, s3m.NewKindError(s3m.KindConfigError, err.Error(), nil)
	}

	if flagAccessKey != "" {
		host.AccessKeyID = flagAccessKey
	} else if v := os.Getenv("S3M_ACCESS_KEY"); v != "" {
		host.AccessKeyID = v
	}
	if flagSecretKey != "" {
		host.SecretKey = s3m.NewSecretString(flagSecretKey)
	} else if v := os.Getenv("S3M_SECRET_KEY"); v != "" {
		host.SecretKey = s3m.NewSecretString(v)
	}
	if flagEndpoint != "" {
		host.Host = flagEndpoint
	} else if v := os.Getenv("S3M_ENDPOINT"); v != "" {
		host.Host = v
	}
	if flagRegion != "" {
		host.Region = flagRegion
	} else if v := os.Getenv("S3M_REGION"); v != "" {
		host.Region = v
	}
	if host.Scheme == "" {
		host.Scheme = "https"
	}
	return host, nil
}

// destPath is a parsed <host>/<bucket>/<key> (or <host>[/<bucket>[/<prefix>]]
// for ls) positional argument.
type destPath struct {
	Host   string
	Bucket string
	Key    string
}

// parseDest splits s into at most three "/"-delimited segments: host,
// bucket, and the rest of the path as the key (keys may themselves
// contain slashes).
func parseDest(s string) (destPath, error) {
	parts := strings.SplitN(s, "/", 3)
	if parts[0] == "" {
		return destPath{}, s3m.NewKindError(s3m.KindBadRequest, "destination must start with a host name", nil)
	}
	d := destPath{Host: parts[0]}
	if len(parts) > 1 {
		d.Bucket = parts[1]
	}
	if len(parts) > 2 {
		d.Key = parts[2]
	}
	return d, nil
}

func openStore(hostName string) (*s3m.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, s3m.NewKindError(s3m.KindConfigError, "resolving home directory", err)
	}
	dir := filepath.Join(home, ".config", "s3m")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, s3m.NewKindError(s3m.KindIoError, "creating state directory", err)
	}
	return s3m.OpenStore(filepath.Join(dir, "resume.db"))
}

func spoolDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	dir := filepath.Join(home, ".config", "s3m", "streams")
	os.MkdirAll(dir, 0700)
	return dir
}

// --- put ---

var (
	putACL         string
	putMeta        []string
	putChecksum    string
	putCompress    bool
	putEncrypt     bool
	putEncKey      string
	putRetries     int
	putKilobytes   int
	putNumber      int
	putBufferMB    int64
	putTmpDir      string
	putClean       bool
	putPipe        bool
)

func registerPutFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&putACL, "acl", "", "canned ACL to apply to the uploaded object")
	cmd.Flags().StringArrayVar(&putMeta, "meta", nil, "object metadata, key=value (repeatable)")
	cmd.Flags().StringVar(&putChecksum, "checksum", "", "extra per-part checksum algorithm (crc32, crc32c, sha1, sha256)")
	cmd.Flags().BoolVarP(&putCompress, "compress", "x", false, "zstd-compress the object before upload")
	cmd.Flags().BoolVar(&putEncrypt, "encrypt", false, "encrypt the object with XChaCha20-Poly1305")
	cmd.Flags().StringVar(&putEncKey, "enc-key", "", "32-byte encryption key (overrides the host profile's)")
	cmd.Flags().IntVar(&putRetries, "retries", 3, "maximum retry attempts per HTTP request")
	cmd.Flags().IntVar(&putKilobytes, "kilobytes", 0, "throttle upload to N KiB/s (0 = unlimited)")
	cmd.Flags().IntVar(&putNumber, "number", 0, "concurrent UploadPart workers (0 = NumCPU)")
	cmd.Flags().Int64Var(&putBufferMB, "buffer", 10, "part/buffer size in MiB")
	cmd.Flags().StringVar(&putTmpDir, "tmp-dir", "", "spool directory for unknown-size sources (default: config dir)")
	cmd.Flags().BoolVar(&putClean, "clean", false, "discard any existing resumption record before starting")
	cmd.Flags().BoolVar(&putPipe, "pipe", false, "read the object body from stdin instead of a file")
}

func runPut(cmd *cobra.Command, args []string) error {
	source := args[0]
	dest, err := parseDest(args[1])
	if err != nil {
		return err
	}
	if dest.Bucket == "" || dest.Key == "" {
		return s3m.NewKindError(s3m.KindBadRequest, "destination must be <host>/<bucket>/<key>", nil)
	}

	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}

	metadata := map[string]string{}
	for _, kv := range putMeta {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return s3m.NewKindError(s3m.KindBadRequest, fmt.Sprintf("invalid --meta %q, expected key=value", kv), nil)
		}
		metadata[k] = v
	}

	if putEncKey != "" {
		host.EncryptionKey = []byte(putEncKey)
	}

	act := &s3m.PutObjectAction{
		Bucket:        dest.Bucket,
		Key:           dest.Key,
		ACL:           putACL,
		Metadata:      metadata,
		ChecksumAlg:   putChecksum,
		Compress:      putCompress,
		Encrypt:       putEncrypt,
		Clean:         putClean,
		BufferSize:    putBufferMB * 1024 * 1024,
		Workers:       putNumber,
		ThrottleKiBps: putKilobytes,
		TmpDir:        putTmpDir,
	}
	if act.TmpDir == "" {
		act.TmpDir = spoolDir()
	}

	var bar *progressbar.ProgressBar
	if putPipe {
		act.Source = os.Stdin
		act.SourceSize = -1
		if !flagQuiet {
			bar = progressbar.DefaultBytes(-1, "uploading")
		}
	} else {
		f, err := os.Open(source)
		if err != nil {
			return s3m.NewKindError(s3m.KindIoError, "opening "+source, err)
		}
		defer f.Close()
		stat, err := f.Stat()
		if err != nil {
			return s3m.NewKindError(s3m.KindIoError, "statting "+source, err)
		}
		act.Source = f
		act.SourceSize = stat.Size()
		act.SourceMTimeNS = stat.ModTime().UnixNano()
		if !flagQuiet {
			bar = progressbar.DefaultBytes(stat.Size(), "uploading")
		}
	}
	if bar != nil {
		act.Source = io.TeeReader(act.Source, bar)
	}

	store, err := openStore(host.Name)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := s3m.NewEngine(host, store, log)
	engine.MaxRetries = putRetries

	result, err := engine.Run(cmdContext(), act)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}
	fmt.Println(result)
	return nil
}

// --- get ---

var (
	getForce      bool
	getMeta       bool
	getDecrypt    bool
	getDecompress bool
	getEncKey     string
	getVersion    string
	getVersions   bool
)

var getCmd = &cobra.Command{
	Use:   "get <host>/<bucket>/<key> [output]",
	Short: "Download an object",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getForce, "force", false, "overwrite an existing local file")
	getCmd.Flags().BoolVar(&getMeta, "meta", false, "print the object's headers instead of downloading it")
	getCmd.Flags().BoolVar(&getDecrypt, "decrypt", false, "decrypt the downloaded object")
	getCmd.Flags().BoolVar(&getDecompress, "decompress", false, "decompress the downloaded object")
	getCmd.Flags().StringVar(&getEncKey, "enc-key", "", "32-byte decryption key (overrides the host profile's)")
	getCmd.Flags().StringVar(&getVersion, "version", "", "fetch a specific object version")
	getCmd.Flags().BoolVar(&getVersions, "versions", false, "list the object's version history instead of downloading")
}

func runGet(cmd *cobra.Command, args []string) error {
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	if dest.Bucket == "" || dest.Key == "" {
		return s3m.NewKindError(s3m.KindBadRequest, "destination must be <host>/<bucket>/<key>", nil)
	}

	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	if getEncKey != "" {
		host.EncryptionKey = []byte(getEncKey)
	}

	engine := s3m.NewEngine(host, nil, log)

	if getVersions {
		result, err := engine.Run(cmdContext(), &s3m.GetObjectAction{Bucket: dest.Bucket, Key: dest.Key, Versions: true})
		if err != nil {
			return err
		}
		versions, _ := result.([]s3m.ObjectVersion)
		for _, v := range versions {
			latest := ""
			if v.IsLatest {
				latest = " (latest)"
			}
			fmt.Printf("%-40s %12d  %s%s\n", v.VersionID, v.Size, v.LastModified, latest)
		}
		return nil
	}

	if getMeta {
		headers, err := engine.Run(cmdContext(), &s3m.HeadObjectAction{Bucket: dest.Bucket, Key: dest.Key})
		if err != nil {
			return err
		}
		h, _ := headers.(http.Header)
		for k, v := range h {
			fmt.Printf("%s: %s\n", k, strings.Join(v, ", "))
		}
		return nil
	}

	output := "-"
	if len(args) == 2 {
		output = args[1]
	}

	var w io.Writer
	var bar *progressbar.ProgressBar
	if output == "-" {
		w = os.Stdout
	} else {
		if !getForce {
			if _, err := os.Stat(output); err == nil {
				return s3m.NewKindError(s3m.KindBadRequest, output+" already exists (use --force to overwrite)", nil)
			}
		}
		f, err := os.Create(output)
		if err != nil {
			return s3m.NewKindError(s3m.KindIoError, "creating "+output, err)
		}
		defer f.Close()
		w = f
		if !flagQuiet {
			bar = progressbar.DefaultBytes(-1, "downloading")
			w = io.MultiWriter(f, bar)
		}
	}

	act := &s3m.GetObjectAction{
		Bucket:     dest.Bucket,
		Key:        dest.Key,
		Version:    getVersion,
		Force:      getForce,
		Decrypt:    getDecrypt,
		Decompress: getDecompress,
		Dest:       w,
	}
	if _, err := engine.Run(cmdContext(), act); err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}
	return nil
}

// --- ls ---

var (
	lsPrefix     string
	lsStartAfter string
	lsMultipart  bool
	lsNumber     int
)

var lsCmd = &cobra.Command{
	Use:   "ls [host[/bucket[/prefix]]]",
	Short: "List buckets, objects, or in-progress multipart uploads",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().StringVar(&lsPrefix, "prefix", "", "object key prefix filter")
	lsCmd.Flags().StringVar(&lsStartAfter, "start-after", "", "resume listing after this key")
	lsCmd.Flags().BoolVarP(&lsMultipart, "multipart", "m", false, "list in-progress multipart uploads instead of objects")
	lsCmd.Flags().IntVar(&lsNumber, "number", 1000, "maximum entries to print")
}

func runLs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return s3m.NewKindError(s3m.KindBadRequest, "ls requires a host name", nil)
	}
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	engine := s3m.NewEngine(host, nil, log)
	ctx := cmdContext()

	if dest.Bucket == "" {
		result, err := engine.Run(ctx, &s3m.ListBucketsAction{})
		if err != nil {
			return err
		}
		buckets, _ := result.([]string)
		for _, b := range buckets {
			fmt.Println(b)
		}
		return nil
	}

	prefix := lsPrefix
	if prefix == "" {
		prefix = dest.Key
	}

	if lsMultipart {
		result, err := engine.Run(ctx, &s3m.ListMultipartAction{Bucket: dest.Bucket, Prefix: prefix})
		if err != nil {
			return err
		}
		return printMultipartUploads(result)
	}

	result, err := engine.Run(ctx, &s3m.ListObjectsAction{Bucket: dest.Bucket, Prefix: prefix, StartAfter: lsStartAfter, Limit: lsNumber})
	if err != nil {
		return err
	}
	return printObjects(result, lsNumber)
}

func printObjects(result interface{}, limit int) error {
	entries, ok := result.([]s3m.Object)
	if !ok {
		return s3m.NewKindError(s3m.KindInconsistentState, "unexpected ls result type", nil)
	}
	for i, o := range entries {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Printf("%-60s %12d  %s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printMultipartUploads(result interface{}) error {
	uploads, ok := result.([]s3m.MultipartUploadSummary)
	if !ok {
		return s3m.NewKindError(s3m.KindInconsistentState, "unexpected ls --multipart result type", nil)
	}
	for _, u := range uploads {
		fmt.Printf("%-60s %-40s %s\n", u.Key, u.UploadID, u.Initiated.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// --- rm ---

var (
	rmBucket   bool
	rmUploadID string
	rmVersion  string
)

var rmCmd = &cobra.Command{
	Use:   "rm <host>/<bucket>/<key>",
	Short: "Delete an object, abort a multipart upload, or remove a bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	rmCmd.Flags().BoolVar(&rmBucket, "bucket", false, "remove the (empty) bucket rather than an object")
	rmCmd.Flags().StringVarP(&rmUploadID, "abort", "a", "", "abort this in-progress multipart upload id")
	rmCmd.Flags().StringVar(&rmVersion, "version", "", "delete a specific object version")
}

func runRm(cmd *cobra.Command, args []string) error {
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	store, err := openStore(host.Name)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := s3m.NewEngine(host, store, log)
	ctx := cmdContext()

	switch {
	case rmBucket:
		_, err := engine.Run(ctx, &s3m.DeleteBucketAction{Bucket: dest.Bucket})
		return err
	case rmUploadID != "":
		_, err := engine.Run(ctx, &s3m.AbortMultipartAction{Bucket: dest.Bucket, Key: dest.Key, UploadID: rmUploadID})
		return err
	default:
		if dest.Key == "" {
			return s3m.NewKindError(s3m.KindBadRequest, "rm requires a key, or --bucket to remove the bucket itself", nil)
		}
		_, err := engine.Run(ctx, &s3m.DeleteObjectAction{Bucket: dest.Bucket, Key: dest.Key, Version: rmVersion})
		return err
	}
}

// --- cb ---

var cbACL string

var cbCmd = &cobra.Command{
	Use:   "cb <host>/<bucket>",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runCb,
}

func init() {
	cbCmd.Flags().StringVar(&cbACL, "acl", "", "canned ACL to apply to the new bucket")
}

func runCb(cmd *cobra.Command, args []string) error {
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	if dest.Bucket == "" {
		return s3m.NewKindError(s3m.KindBadRequest, "cb requires <host>/<bucket>", nil)
	}
	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	engine := s3m.NewEngine(host, nil, log)
	_, err = engine.Run(cmdContext(), &s3m.CreateBucketAction{Bucket: dest.Bucket, ACL: cbACL})
	return err
}

// --- share ---

var shareExpires int

var shareCmd = &cobra.Command{
	Use:   "share <host>/<bucket>/<key>",
	Short: "Produce a presigned URL for an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runShare,
}

func init() {
	shareCmd.Flags().IntVar(&shareExpires, "expires", 3600, "URL lifetime in seconds (max 604800)")
}

func runShare(cmd *cobra.Command, args []string) error {
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	if dest.Bucket == "" || dest.Key == "" {
		return s3m.NewKindError(s3m.KindBadRequest, "share requires <host>/<bucket>/<key>", nil)
	}
	if shareExpires <= 0 || shareExpires > 604800 {
		return s3m.NewKindError(s3m.KindBadRequest, "--expires must be between 1 and 604800 seconds", nil)
	}
	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	engine := s3m.NewEngine(host, nil, log)
	result, err := engine.Run(cmdContext(), &s3m.ShareAction{Bucket: dest.Bucket, Key: dest.Key, Expires: shareExpires})
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

// --- acl ---

var aclCanned string

var aclCmd = &cobra.Command{
	Use:   "acl <host>/<bucket>/<key>",
	Short: "Get or set an object's canned ACL",
	Long: `Without --acl, prints the object's current owner and grant list.
With --acl <canned>, sets the canned ACL (S3 does not validate canned ACL
names beyond non-emptiness; an invalid name is rejected by the server,
not by s3m).`,
	Args: cobra.ExactArgs(1),
	RunE: runAcl,
}

func init() {
	aclCmd.Flags().StringVar(&aclCanned, "acl", "", "canned ACL to apply (omit to read the current ACL)")
}

func runAcl(cmd *cobra.Command, args []string) error {
	dest, err := parseDest(args[0])
	if err != nil {
		return err
	}
	if dest.Bucket == "" || dest.Key == "" {
		return s3m.NewKindError(s3m.KindBadRequest, "acl requires <host>/<bucket>/<key>", nil)
	}
	host, err := resolveHost(dest.Host)
	if err != nil {
		return err
	}
	engine := s3m.NewEngine(host, nil, log)
	ctx := cmdContext()

	if aclCanned != "" {
		_, err := engine.Run(ctx, &s3m.PutAclAction{Bucket: dest.Bucket, Key: dest.Key, ACL: aclCanned})
		return err
	}

	result, err := engine.Run(ctx, &s3m.GetAclAction{Bucket: dest.Bucket, Key: dest.Key})
	if err != nil {
		return err
	}
	acl, ok := result.(struct {
		Owner  string
		Grants []s3m.ObjectGrant
	})
	if !ok {
		return s3m.NewKindError(s3m.KindInconsistentState, "unexpected acl result type", nil)
	}
	fmt.Printf("Owner: %s\n", acl.Owner)
	for _, g := range acl.Grants {
		fmt.Printf("  %-20s %s\n", g.Permission, g.Grantee)
	}
	return nil
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List configured hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(cfg.Hosts))
		for name := range cfg.Hosts {
			names = append(names, name)
		}
		sortStrings(names)
		for _, name := range names {
			entry := cfg.Hosts[name]
			fmt.Printf("%-20s %s\n", name, entry.Endpoint)
		}
		return nil
	},
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("s3m %s\n", version)
		if commit != "none" {
			fmt.Printf("commit: %s\n", commit)
		}
		fmt.Printf("user-agent: %s\n", GetUserAgent())
	},
}

func cmdContext() context.Context {
	return context.Background()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "s3m: "+err.Error())
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var kerr *s3m.KindError
	if errors.As(err, &kerr) {
		return kerr.Kind.ExitCode()
	}
	return 1
}
