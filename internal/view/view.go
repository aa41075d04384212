// Package view renders the storefront HTML pages. Components live in the
// .templ files of this package; the _templ.go files are generated from them.
package view

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.1001 generate

import (
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// Badge is printed on every catalog card.
const Badge = "ADDITIONAL ACCESSORIES"

const (
	// ScrollReportInterval is the minimum gap between scroll samples the
	// page posts while the visitor scrolls.
	ScrollReportInterval = 150 * time.Millisecond
	// RefreshDelay is how long scrolling must pause before the page asks
	// for newly loaded cards.
	RefreshDelay = 400 * time.Millisecond
)

// StorefrontData is everything the storefront page renders.
type StorefrontData struct {
	Brand     domain.Brand
	SessionID string
	Items     []domain.CatalogItem
	IsLoading bool
	HasMore   bool
	Error     errsink.Display
}

// DownloadPath returns the image download endpoint for src.
func DownloadPath(src, name string) string {
	q := url.Values{}
	q.Set("url", src)
	if name != "" {
		q.Set("name", name)
	}
	return "/api/v1/images/download?" + q.Encode()
}

// safeURL replaces unsafe schemes such as javascript: with a harmless URL.
func safeURL(s string) string {
	return string(templ.URL(s))
}

// cardID is unique per position, since model numbers may repeat.
func cardID(modelNumber string, index int) string {
	return "item-" + modelNumber + "-" + strconv.Itoa(index)
}

func dismissPath(sessionID string) string {
	return "/storefront/sessions/" + url.PathEscape(sessionID) + "/dismiss"
}

func dialogTitle(d errsink.Display) string {
	if d.Title == "" {
		return errsink.DefaultTitle
	}
	return d.Title
}

func contactLines(b domain.Brand) []string {
	var lines []string
	for _, line := range []string{b.Address, b.Email, b.Phone} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func styleTag() templ.Component {
	return templ.Raw("<style>" + stylesheet + "</style>")
}

func scrollScriptTag() templ.Component {
	return templ.Raw("<script>" + scrollScript + "</script>")
}

const stylesheet = `body{margin:0;font-family:system-ui,sans-serif;background:#f9fafb;color:#111}
header{position:sticky;top:0;z-index:40;display:flex;flex-wrap:wrap;gap:1rem;align-items:center;justify-content:space-between;padding:1rem 1.5rem;background:#fff;border-bottom:1px solid #e5e7eb}
header .brand{display:flex;align-items:center;gap:1rem;font-size:1.75rem;font-weight:300;color:#4b4baf}
header .brand img{width:4rem;height:4rem;object-fit:contain;border:1px solid #e5e7eb;border-radius:.25rem}
header .contact{display:flex;flex-direction:column;gap:.25rem;font-size:.9rem;border-left:2px solid #d1d5db;padding-left:1.5rem}
main{padding:1rem 2rem;min-height:100vh}
.grid{display:grid;gap:1.5rem;grid-template-columns:repeat(auto-fill,minmax(220px,1fr))}
.card{position:relative;display:flex;flex-direction:column;background:#fff;border-radius:.25rem;box-shadow:0 4px 12px rgba(0,0,0,.1);overflow:hidden}
.card .badge{position:absolute;top:.5rem;left:.5rem;background:#ffc901;font-size:.75rem;font-weight:600;padding:.25rem .75rem;border-radius:.25rem}
.card .image{height:14rem;display:flex;align-items:center;justify-content:center;background:#f3f4f6}
.card .image img{width:100%;height:100%;object-fit:cover}
.card .details{padding:1rem}
.card .title{font-weight:600;font-size:1.1rem;text-transform:uppercase;white-space:nowrap;overflow:hidden;text-overflow:ellipsis;margin-bottom:.5rem}
.card .model{background:#f3f4f6;border-radius:.25rem;padding:.5rem;font-size:.75rem;color:#374151}
.card .download{display:inline-block;margin-top:.5rem;font-size:.8rem;color:#4b4baf}
.loading{padding:2rem;text-align:center;color:#6b7280}
.dialog{position:fixed;inset:0;z-index:50;display:flex;align-items:center;justify-content:center;backdrop-filter:blur(4px)}
.dialog .panel{position:relative;background:#fff;border-radius:.5rem;padding:1.5rem;max-width:32rem;box-shadow:0 10px 30px rgba(0,0,0,.2)}
.dialog h3{margin:0 0 .5rem;font-size:1.1rem}
.dialog p{margin:0;color:#6b7280;font-size:.9rem}
.dialog button{position:absolute;top:.75rem;right:.75rem;border:0;background:none;font-size:1.25rem;cursor:pointer}
.notfound{min-height:100vh;display:flex;flex-direction:column;align-items:center;justify-content:center;text-align:center;background:#f3f4f6}
.notfound h1{font-size:6rem;margin:0}
.notfound a{margin-top:2rem;background:#2563eb;color:#fff;padding:.75rem 2rem;border-radius:.5rem;text-decoration:none}
`

// scrollScript posts viewport samples to the session API, at most one per
// data-scroll-interval, and appends newly loaded cards once scrolling
// pauses. Only one refresh is in flight at a time and each one starts from
// the item count the server last reported, so cards are never appended
// twice. The server owns the debounce and the near-bottom decision.
const scrollScript = `(function(){
var main=document.getElementById("storefront");if(!main)return;
var id=encodeURIComponent(main.dataset.session),grid=document.getElementById("grid"),loading=document.getElementById("loading");
var loaded=parseInt(main.dataset.loaded,10)||0,every=parseInt(main.dataset.scrollInterval,10)||150,pause=parseInt(main.dataset.refreshDelay,10)||400;
var busy=false,again=false,last=0,pending=null,settle=null;
function refresh(){
if(busy){again=true;return;}
busy=true;
fetch("/storefront/sessions/"+id+"/items?wait=true&from="+loaded).then(function(r){
var state=r.headers.get("X-Loader-State"),count=parseInt(r.headers.get("X-Item-Count"),10);
return r.text().then(function(html){
if(html)grid.insertAdjacentHTML("beforeend",html);
if(!isNaN(count))loaded=count;
loading.hidden=r.headers.get("X-Loading")!=="true";
if(state==="failed")location.assign("/storefront/sessions/"+id);
});
}).catch(function(){}).finally(function(){
busy=false;
if(again){again=false;refresh();}
});
}
function report(){
last=Date.now();pending=null;
var d=document.documentElement;
fetch("/api/v1/sessions/"+id+"/scroll",{method:"POST",headers:{"Content-Type":"application/json"},
body:JSON.stringify({scrollOffset:window.scrollY,viewportHeight:window.innerHeight,scrollHeight:d.scrollHeight})}).catch(function(){});
}
window.addEventListener("scroll",function(){
var wait=every-(Date.now()-last);
if(wait<=0)report();else if(!pending)pending=setTimeout(report,wait);
clearTimeout(settle);settle=setTimeout(refresh,pause);
},{passive:true});
})();`
