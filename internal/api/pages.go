package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var formPage = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>kirbuk - demo videos for your product</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem; }
label { display: block; margin-top: 1rem; font-weight: 600; }
input, textarea { width: 100%; padding: .5rem; box-sizing: border-box; }
button { margin-top: 1.5rem; padding: .6rem 1.4rem; }
#result { margin-top: 1rem; }
</style>
</head>
<body>
<h1>Create a demo video</h1>
<form id="submit-form">
  <label for="product_url">Product URL</label>
  <input id="product_url" name="product_url" type="url" required placeholder="https://example.com">
  <label for="directions">What should the demo show?</label>
  <textarea id="directions" name="directions" rows="4"></textarea>
  <label for="email">Email (optional)</label>
  <input id="email" name="email" type="email">
  <label for="test_username">Test username (optional)</label>
  <input id="test_username" name="test_username" autocomplete="off">
  <label for="test_password">Test password (optional)</label>
  <input id="test_password" name="test_password" type="password" autocomplete="off">
  <label><input id="humorous" name="humorous" type="checkbox" style="width:auto"> Humorous narration</label>
  <button type="submit">Create video</button>
</form>
<div id="result"></div>
<script>
document.getElementById("submit-form").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const f = ev.target;
  const body = {
    product_url: f.product_url.value,
    directions: f.directions.value,
    email: f.email.value,
    test_username: f.test_username.value,
    test_password: f.test_password.value,
    humorous: f.humorous.checked,
  };
  const out = document.getElementById("result");
  const resp = await fetch("/submit", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
  const data = await resp.json();
  if (!resp.ok) { out.textContent = data.error || "Submission failed"; return; }
  window.location = "/submission/" + encodeURIComponent(data.submission_id);
});
</script>
</body>
</html>
`))

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>kirbuk - submission {{.ID}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 3rem auto; padding: 0 1rem; }
li { margin: .3rem 0; }
li.done::before { content: "\2713  "; color: green; }
li.pending::before { content: "\2026  "; color: gray; }
pre { background: #f5f5f5; padding: .8rem; overflow-x: auto; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Submission {{.ID}}</h1>
<ul id="stages"></ul>
<div id="video"></div>
<details><summary>Narrative</summary><pre id="narrative"></pre></details>
<details><summary>Voice script</summary><pre id="voice_script"></pre></details>
<details><summary>Automation script</summary><pre id="automation"></pre></details>
<script>
const id = {{.ID}};
const stages = [
  ["payload_exists", "Submission received"],
  ["script_exists", "Product explored"],
  ["playwright_exists", "Automation script written"],
  ["voice_script_exists", "Voice script written"],
  ["voice_exists", "Voice-over recorded"],
  ["video_exists", "Video ready"],
];
async function poll() {
  const resp = await fetch("/api/status/" + encodeURIComponent(id));
  if (!resp.ok) { setTimeout(poll, 5000); return; }
  const s = await resp.json();
  const ul = document.getElementById("stages");
  ul.innerHTML = "";
  for (const [flag, label] of stages) {
    const li = document.createElement("li");
    li.className = s[flag] ? "done" : "pending";
    li.textContent = label;
    ul.appendChild(li);
  }
  document.getElementById("narrative").textContent = s.script_content || "";
  document.getElementById("voice_script").textContent = s.voice_script_content || "";
  document.getElementById("automation").textContent = s.playwright_content || "";
  if (s.video_url) {
    const v = document.getElementById("video");
    if (!v.firstChild) {
      const el = document.createElement("video");
      el.controls = true;
      el.width = 720;
      el.src = s.video_url;
      v.appendChild(el);
    }
  }
  setTimeout(poll, 5000);
}
poll();
</script>
</body>
</html>
`))

// ---------------------------------------------------------------------------
// GET /
// ---------------------------------------------------------------------------

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, formPage, nil)
}

// ---------------------------------------------------------------------------
// GET /submission/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	renderPage(w, statusPage, struct{ ID string }{id})
}

func renderPage(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		slog.Error("render page", "page", t.Name(), "error", err)
	}
}
