package workflow

import (
	"fmt"

	"vidpress/internal/assemble"
	"vidpress/internal/config"
	"vidpress/internal/fileutil"
	"vidpress/internal/htmlrender"
	"vidpress/internal/manifest"
	"vidpress/internal/plan"
	"vidpress/internal/services"
	"vidpress/internal/workspace"
)

// writeArtifacts creates the run outputs exclusively. It returns the HTML
// path, or "" when the export is disabled.
func (r *Runner) writeArtifacts(run *workspace.Run, validated plan.ArticlePlan, article assemble.AssembledArticle, mw *manifest.Writer) (string, error) {
	if err := fileutil.WriteOnce(run.ArticlePath(), []byte(article.Markdown), 0o644); err != nil {
		return "", artifactError("article", err)
	}
	if err := mw.Write(run.ManifestPath()); err != nil {
		return "", artifactError("manifest", err)
	}
	if err := fileutil.WriteJSONOnce(run.PlanPath(), validated); err != nil {
		return "", artifactError("plan", err)
	}
	if !r.cfg.Render.HTML {
		return "", nil
	}
	html, err := htmlrender.Render(article.Markdown, htmlrender.Options{
		Title:  validated.Title,
		WeChat: r.cfg.Publish.Backend == config.PublishWeChat,
	})
	if err != nil {
		return "", artifactError("html", err)
	}
	if err := fileutil.WriteOnce(run.HTMLPath(), []byte(html), 0o644); err != nil {
		return "", artifactError("html", err)
	}
	return run.HTMLPath(), nil
}

func artifactError(name string, err error) error {
	return services.Wrap(services.ErrExternalTool, "workflow", "write "+name, fmt.Sprintf("%v", err), err)
}
