package view

// pageTemplates holds the built-in page templates. Styling is deliberately
// minimal; the chrome carries no state beyond what each page struct provides.
var pageTemplates = map[string]string{
	"layout_head": `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.AppName}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2937}
.wrap{max-width:860px;margin:0 auto;padding:24px}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:20px;margin-bottom:16px}
.field{margin-bottom:16px}
label{display:block;font-weight:600;font-size:14px;margin-bottom:4px}
.desc{color:#6b7280;font-size:12px;margin-bottom:4px}
input[type=text],input[type=number],input[type=password],input[type=email],textarea,select{width:100%;box-sizing:border-box;padding:8px;border:1px solid #d1d5db;border-radius:6px;font-size:14px}
.error{color:#dc2626;font-size:12px;margin-top:4px}
.req{color:#dc2626}
.progress{height:8px;background:#e5e7eb;border-radius:4px;overflow:hidden;margin:8px 0 16px}
.progress>div{height:100%;background:#2563eb;transition:width .3s}
.steps{display:flex;gap:12px;flex-wrap:wrap;font-size:13px;margin-bottom:8px}
.steps a{color:#374151;text-decoration:none}
.steps a.current{color:#2563eb;font-weight:600}
.actions{display:flex;gap:8px;justify-content:flex-end;align-items:center;margin-top:16px}
button,.btn{padding:8px 14px;border-radius:6px;border:1px solid #d1d5db;background:#fff;cursor:pointer;font-size:14px;text-decoration:none;color:#1f2937}
button.primary{background:#2563eb;border-color:#2563eb;color:#fff}
.notice{color:#6b7280;font-size:12px}
.banner{background:#fef2f2;border:1px solid #fecaca;color:#991b1b;padding:10px;border-radius:6px;margin-bottom:16px}
table{width:100%;border-collapse:collapse}
td{padding:6px 8px;border-bottom:1px solid #f3f4f6;font-size:14px;vertical-align:top}
td:first-child{color:#6b7280;width:40%}
</style>
</head>
<body><div class="wrap">`,

	"layout_foot": `</div></body></html>`,

	"field": `<div class="field">
<label for="{{.Key}}">{{.Label}}{{if .Required}}<span class="req"> *</span>{{end}}</label>
{{if .Description}}<div class="desc">{{.Description}}</div>{{end}}
{{if .IsBranch}}
<select id="{{.Key}}" name="{{.Key}}" data-kind="branch"{{if .ReadOnly}} disabled{{end}}>
<option value=""></option>
{{range $opt := .Options}}<option value="{{$opt}}"{{if eq $opt $.Selected}} selected{{end}}>{{$opt}}</option>{{end}}
</select>
{{else if eq .Type "textarea"}}
<textarea id="{{.Key}}" name="{{.Key}}" rows="5"{{if .CharLimit}} maxlength="{{.CharLimit}}"{{end}}{{if .ReadOnly}} disabled{{end}}>{{.Value}}</textarea>
{{else if eq .Type "enum"}}
<select id="{{.Key}}" name="{{.Key}}"{{if .ReadOnly}} disabled{{end}}>
<option value=""></option>
{{range $opt := .Options}}<option value="{{$opt}}"{{if eq $opt $.Selected}} selected{{end}}>{{$opt}}</option>{{end}}
</select>
{{else if eq .Type "checkbox"}}
<input type="checkbox" id="{{.Key}}" name="{{.Key}}"{{if .Checked}} checked{{end}}{{if .ReadOnly}} disabled{{end}}>
{{else if eq .Type "media"}}
<input type="file" id="{{.Key}}" name="{{.Key}}" data-kind="media" data-media-type="{{.MediaType}}" data-max-mb="{{.MaxSizeMB}}"{{if .ReadOnly}} disabled{{end}}>
{{if .Value}}<div class="desc">Uploaded: {{.Value}} <a href="/api/media/download?fieldKey={{.Key}}">download</a>{{if not .ReadOnly}} <a href="#" data-remove="{{.Key}}">remove</a>{{end}}</div>{{end}}
{{else if eq .Type "number"}}
<input type="number" id="{{.Key}}" name="{{.Key}}" value="{{.Value}}"{{if .ReadOnly}} disabled{{end}}>
{{else}}
<input type="text" id="{{.Key}}" name="{{.Key}}" value="{{.Value}}"{{if .CharLimit}} maxlength="{{.CharLimit}}"{{end}}{{if .ReadOnly}} disabled{{end}}>
{{end}}
<div class="error" data-error-for="{{.Key}}">{{.Error}}</div>
</div>`,

	"nodes": `{{range .}}
{{if .IsSection}}
<div class="card"><h3>{{.Title}}</h3>{{template "nodes" .Children}}</div>
{{else}}
{{template "field" .Field}}
{{end}}
{{end}}`,

	"step": `{{template "layout_head" .}}
<div class="steps">
{{range .Steps}}<a href="/form/{{.Slug}}"{{if .Current}} class="current"{{end}}>{{.Title}}</a>{{end}}
</div>
<div class="progress"><div id="progress-bar" style="width:{{.Percent}}%"></div></div>
<div class="desc" id="progress-label">{{.Percent}}% complete</div>
<div class="card">
<h2>{{.Title}}</h2>
<form id="step-form">
{{template "nodes" .Nodes}}
</form>
<div class="actions">
<span class="notice" id="save-notice">{{.SaveNotice}}</span>
{{if not .ReadOnly}}<button type="button" id="save-btn">Save</button>{{end}}
{{if .PrevSlug}}<a class="btn" href="/form/{{.PrevSlug}}">Back</a>{{end}}
{{if .NextSlug}}<a class="btn" href="/form/{{.NextSlug}}">Next</a>{{end}}
<a class="btn" href="/form/review">Review &amp; Submit</a>
</div>
</div>
<script>{{template "stepjs" .}}</script>
{{template "layout_foot" .}}`,

	// Client loop: debounced diff autosave against /api/save, which answers
	// with the recomputed progress. A branch change reloads the page so the
	// server re-renders the newly active children.
	"stepjs": `
(function(){
var form=document.getElementById('step-form');
if(!form)return;
var pending={},timer=null,saving=false;
function notice(t){document.getElementById('save-notice').textContent=t;}
function setProgress(p){
  document.getElementById('progress-bar').style.width=p+'%';
  document.getElementById('progress-label').textContent=p+'% complete';
}
function push(diff,then){
  saving=true;notice('Saving…');
  fetch('/api/save',{method:'POST',headers:{'Content-Type':'application/json'},body:JSON.stringify(diff)})
    .then(function(r){if(!r.ok)throw new Error('save '+r.status);return r.json();})
    .then(function(body){notice('All changes saved');if(typeof body.percent==='number')setProgress(body.percent);if(then)then();})
    .catch(function(){notice('Save failed – retry');})
    .finally(function(){saving=false;});
}
function queue(key,value){
  pending[key]=value;
  if(timer)clearTimeout(timer);
  timer=setTimeout(function(){
    if(saving){return queue(key,value);}
    var diff=pending;pending={};push(diff);
  },700);
}
form.addEventListener('input',function(e){
  var el=e.target;if(!el.name)return;
  if(el.dataset.kind==='media')return;
  var value=el.type==='checkbox'?el.checked:el.value;
  if(el.dataset.kind==='branch'){
    if(timer)clearTimeout(timer);
    var d={};d[el.name]=el.value;
    push(d,function(){location.reload();});
    return;
  }
  queue(el.name,value);
});
form.addEventListener('change',function(e){
  var el=e.target;
  if(el.dataset.kind!=='media'||!el.files||!el.files.length)return;
  var f=el.files[0];
  var maxMB=parseInt(el.dataset.maxMb||'0',10);
  if(maxMB&&f.size>maxMB*1024*1024){notice('File too large (max '+maxMB+'MB)');return;}
  var fd=new FormData();fd.append('file',f);
  notice('Uploading…');
  fetch('/api/media/upload?fieldKey='+encodeURIComponent(el.name),{method:'POST',body:fd})
    .then(function(r){if(!r.ok)throw new Error('upload '+r.status);return r.json();})
    .then(function(){notice('All changes saved');location.reload();})
    .catch(function(){notice('Upload failed – retry');});
});
document.addEventListener('click',function(e){
  var key=e.target&&e.target.dataset&&e.target.dataset.remove;
  if(!key)return;
  e.preventDefault();
  fetch('/api/media?fieldKey='+encodeURIComponent(key),{method:'DELETE'})
    .then(function(){location.reload();});
});
var saveBtn=document.getElementById('save-btn');
if(saveBtn)saveBtn.addEventListener('click',function(){
  var data={};
  Array.prototype.forEach.call(form.elements,function(el){
    if(!el.name||el.dataset.kind==='media')return;
    data[el.name]=el.type==='checkbox'?el.checked:el.value;
  });
  push(data);
});
})();`,

	"review": `{{template "layout_head" .}}
<h2>Review &amp; Submit</h2>
<div class="progress"><div style="width:{{.Percent}}%"></div></div>
<div class="desc">{{.Percent}}% complete</div>
{{if .Banner}}<div class="banner">{{.Banner}}</div>{{end}}
{{if .Submitted}}
<div class="card">Submitted{{if .SubmittedAt}} at {{.SubmittedAt}}{{end}}. This form is read-only now.</div>
{{end}}
{{range .Sections}}
<div class="card">
<h3>{{.Title}}</h3>
<table>
{{range .Rows}}<tr><td>{{.Label}}</td><td>{{if .Value}}{{.Value}}{{else}}&mdash;{{end}}{{with index $.Errors .Key}}<div class="error">{{.}}</div>{{end}}</td></tr>
{{end}}
</table>
</div>
{{end}}
{{if not .Submitted}}
<form method="post" action="/form/review/submit">
<div class="actions">
<a class="btn" href="/form">Back to form</a>
<button class="primary" type="submit">Submit final</button>
</div>
</form>
{{end}}
{{template "layout_foot" .}}`,

	"login": `{{template "layout_head" .}}
<div class="card" style="max-width:420px;margin:48px auto">
<h2>Sign in</h2>
{{if .Error}}<div class="banner">{{.Error}}</div>{{end}}
<form method="post" action="/login">
<div class="field"><label>Email or phone</label><input type="text" name="login" required></div>
<div class="field"><label>Password</label><input type="password" name="password" required></div>
<div class="actions"><a class="btn" href="/register">Create account</a><button class="primary" type="submit">Sign in</button></div>
</form>
</div>
{{template "layout_foot" .}}`,

	"register": `{{template "layout_head" .}}
<div class="card" style="max-width:420px;margin:48px auto">
<h2>Create account</h2>
{{if .Error}}<div class="banner">{{.Error}}</div>{{end}}
<form method="post" action="/register">
<div class="field"><label>Name</label><input type="text" name="name" required></div>
<div class="field"><label>Phone</label><input type="text" name="phone" required></div>
<div class="field"><label>Email</label><input type="email" name="email" required></div>
<div class="field"><label>Password</label><input type="password" name="password" required></div>
<div class="actions"><a class="btn" href="/login">Sign in instead</a><button class="primary" type="submit">Create account</button></div>
</form>
</div>
{{template "layout_foot" .}}`,
}
