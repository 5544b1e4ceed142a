package epub

// stylesheet is shared by every document in the book.
const stylesheet = `html{writing-mode:vertical-rl;-webkit-writing-mode:vertical-rl}
body{font-family:"Hiragino Mincho ProN","Yu Mincho",serif;font-size:1em;line-height:1.8;margin:2em;text-align:justify}
h1{font-size:1.4em;font-weight:bold;margin:2em 1em 1em}
h2{font-size:1.3em;font-weight:bold;margin:1.5em 0.5em}
h3{font-size:1.1em;font-weight:bold;margin:1em 0.5em}
p{text-indent:1em;margin:0.5em 0}
p.blank{margin:0.5em 0;min-height:1em;text-indent:0}
p.no-indent{text-indent:0}
.titlepage{display:flex;justify-content:center;align-items:center;height:100vh;margin:0;writing-mode:horizontal-tb;-webkit-writing-mode:horizontal-tb}
.titlepage .titlebox{border:1px solid #333;padding:1.6em 2.4em;width:62%;min-height:70%;display:flex;flex-direction:column;justify-content:center;align-items:center;text-align:center}
.titlepage .title{font-size:1.4em;font-weight:600;margin:0 0 0.5em 0;line-height:1.5}
.titlepage .author{font-size:0.85em;margin:0}
.tocpage{margin:3em 2em}
.tocpage ol{list-style:none;padding:0;margin:0}
.tocpage li{margin:0 0 0.8em 0}
.colophon-page{writing-mode:horizontal-tb;-webkit-writing-mode:horizontal-tb;display:flex;align-items:flex-end;justify-content:center;height:100vh;margin:0}
.colophon-box{width:70%;border-top:1px solid #333;border-bottom:1px solid #333;padding:1.5em 0;color:#333;font-size:0.8em}
.colophon-title{font-size:1.4em;font-weight:bold;margin-bottom:1em}
.colophon-list{display:grid;grid-template-columns:auto 1fr;column-gap:1.5em;row-gap:0.5em;margin:0}
.colophon-list dt{font-weight:bold}
.colophon-list dd{margin:0}
.colophon-notes{margin-top:1em;font-size:0.9em;line-height:1.6;white-space:normal}
.tcy{text-combine-upright:all;-webkit-text-combine:horizontal}
ruby{ruby-align:center}rt{font-size:0.5em}
.cover{display:flex;justify-content:center;align-items:center;height:100vh;margin:0;writing-mode:horizontal-tb;-webkit-writing-mode:horizontal-tb}
.cover img{max-width:100%;max-height:100%;object-fit:contain}
.cover-title{font-size:1.4em;font-weight:bold;text-align:center;padding:1em;line-height:1.4;writing-mode:vertical-rl;-webkit-writing-mode:vertical-rl}
.backmatter-page{writing-mode:horizontal-tb;-webkit-writing-mode:horizontal-tb;display:flex;align-items:flex-end;justify-content:center;height:100vh;margin:0}
.backmatter{font-size:0.75em;color:#666;margin-bottom:2em}
.backmatter a{color:#666;text-decoration:none}`
