// SPDX-License-Identifier: MIT
package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/model"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

var _ = Describe("Config", func() {
	It("resolves config path from override", func() {
		path, err := config.ResolveConfigPath(filepath.Join("tmp", "bench.yaml"), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join("tmp", "bench.yaml")))
	})

	It("resolves config path from env", func() {
		Expect(os.Setenv("BENCHKEEPER_CONFIG", filepath.Join("cfg", "bench.yaml"))).To(Succeed())
		defer func() { _ = os.Unsetenv("BENCHKEEPER_CONFIG") }()
		path, err := config.ResolveConfigPath("", GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("cfg", "bench.yaml")))
	})

	It("resolves runtime config from nearest parent dotfile", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, config.LocalConfigFilename)
		Expect(os.WriteFile(parentPath, []byte("publish:\n  tool: go\n"), 0o644)).To(Succeed())

		nested := filepath.Join(dir, "a", "b", "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(parentPath))
	})

	It("returns an empty path when no dotfile exists", func() {
		path, err := config.FindNearestConfigPath(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(BeEmpty())
	})

	It("loads a config file on top of defaults", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, config.LocalConfigFilename)
		data := []byte("apiVersion: skaphos.io/benchkeeper/v1beta1\nkind: BenchkeeperConfig\npublish:\n  tool: cargo\n  alert_threshold: \"150%\"\n  alert_cc_users: [\"@alice\"]\n")
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Publish.Tool).To(Equal("cargo"))
		Expect(cfg.Publish.Branch).To(Equal(config.DefaultBranch))
		Expect(cfg.Publish.OutputDir).To(Equal(config.DefaultOutputDir))
		Expect(cfg.Publish.AlertCCUsers).To(Equal([]string{"@alice"}))

		resolved, err := cfg.Publish.Resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved.Tool).To(Equal(model.ToolCargo))
		Expect(resolved.AlertThreshold).To(BeNumerically("~", 1.5, 1e-9))
		Expect(resolved.FailThreshold).To(BeNumerically("~", 1.5, 1e-9))
	})

	It("fills in a missing apiVersion and kind", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bench.yaml")
		Expect(os.WriteFile(path, []byte("publish:\n  tool: go\n"), 0o644)).To(Succeed())
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.APIVersion).To(Equal(config.ConfigAPIVersion))
		Expect(cfg.Kind).To(Equal(config.ConfigKind))
	})

	It("rejects an unsupported apiVersion", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bench.yaml")
		Expect(os.WriteFile(path, []byte("apiVersion: other/v1\nkind: BenchkeeperConfig\n"), 0o644)).To(Succeed())
		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("unsupported config apiVersion")))
	})

	It("saves and reloads a config", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "bench.yaml")
		cfg := config.DefaultFile()
		cfg.Publish.Tool = "pytest"
		cfg.Publish.Token = "secret"
		Expect(config.Save(&cfg, path)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("secret"))

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Publish.Tool).To(Equal("pytest"))
		Expect(loaded.Publish.Token).To(BeEmpty())
	})

	It("overlays environment variables", func() {
		opts := config.DefaultFile().Publish
		err := config.ApplyEnv(&opts, envFrom(map[string]string{
			"BENCHKEEPER_TOOL":           "benchmarkjs",
			"BENCHKEEPER_AUTO_PUSH":      "true",
			"BENCHKEEPER_ALERT_CC_USERS": "@a, @b",
			"GITHUB_TOKEN":               "tok",
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.Tool).To(Equal("benchmarkjs"))
		Expect(opts.AutoPush).To(BeTrue())
		Expect(opts.AlertCCUsers).To(Equal([]string{"@a", "@b"}))
		Expect(opts.Token).To(Equal("tok"))
		Expect(opts.Branch).To(Equal(config.DefaultBranch))
	})

	It("reports malformed boolean variables", func() {
		opts := config.DefaultFile().Publish
		err := config.ApplyEnv(&opts, envFrom(map[string]string{"BENCHKEEPER_FAIL_ON_ALERT": "maybe"}))
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})
})

var _ = Describe("Resolve", func() {
	base := func() config.Options {
		opts := config.DefaultFile().Publish
		opts.Tool = "go"
		return opts
	}

	It("rejects unknown tools", func() {
		opts := base()
		opts.Tool = "jmh"
		_, err := opts.Resolve()
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	DescribeTable("requires a token for remote side effects",
		func(mutate func(*config.Options), msg string) {
			opts := base()
			mutate(&opts)
			_, err := opts.Resolve()
			Expect(err).To(MatchError(config.ErrInvalidConfig))
			Expect(err).To(MatchError(ContainSubstring(msg)))
		},
		Entry("comment on alert", func(o *config.Options) { o.CommentOnAlert = true }, "comment-on-alert"),
		Entry("comment always", func(o *config.Options) { o.CommentAlways = true }, "comment-always"),
		Entry("auto push", func(o *config.Options) { o.AutoPush = true }, "auto-push"),
	)

	It("accepts remote side effects with a token", func() {
		opts := base()
		opts.AutoPush = true
		opts.CommentOnAlert = true
		opts.Token = "tok"
		p, err := opts.Resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(p.AutoPush).To(BeTrue())
		Expect(p.AlertThreshold).To(BeNumerically("~", 2.0, 1e-9))
	})

	It("rejects output directories outside the repository", func() {
		opts := base()
		opts.OutputDir = "../elsewhere"
		_, err := opts.Resolve()
		Expect(err).To(MatchError(ContainSubstring("inside the repository")))
	})

	It("keeps a separate fail threshold", func() {
		opts := base()
		opts.FailThreshold = "3"
		p, err := opts.Resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(p.FailThreshold).To(BeNumerically("~", 3.0, 1e-9))
	})
})
