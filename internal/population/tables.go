package population

// Lookup tables for the population generator. They are deliberately small:
// the corpus needs plausible shapes, not demographic accuracy.

var countryWeights = []struct {
	code   string
	weight float64
}{
	{"US", 20}, {"IN", 15}, {"BR", 8}, {"GB", 7}, {"DE", 6}, {"FR", 5}, {"JP", 5},
	{"CA", 4}, {"AU", 3}, {"KR", 3}, {"MX", 3}, {"ID", 3}, {"PH", 3}, {"TR", 2},
	{"RU", 2}, {"NG", 2}, {"PL", 2}, {"NL", 2}, {"SE", 1}, {"IT", 2},
	{"ES", 2}, {"ZA", 1}, {"EG", 1}, {"CN", 3}, {"VN", 2}, {"PK", 2},
	{"UA", 1}, {"RO", 1}, {"BD", 1}, {"TH", 1},
}

var countryLanguages = map[string][]string{
	"US": {"en", "es"}, "GB": {"en"}, "CA": {"en", "fr"}, "AU": {"en"},
	"IN": {"hi", "en"}, "BR": {"pt"}, "DE": {"de"}, "FR": {"fr"},
	"JP": {"ja"}, "KR": {"ko"}, "MX": {"es"}, "NG": {"en"},
	"RU": {"ru"}, "CN": {"zh"}, "ID": {"id"}, "PH": {"tl", "en"},
	"TR": {"tr"}, "EG": {"ar"}, "PK": {"hi", "en"}, "BD": {"bn"},
	"VN": {"vi"}, "IT": {"it"}, "ES": {"es", "ca"}, "NL": {"nl"},
	"SE": {"sv"}, "PL": {"pl"}, "UA": {"uk"}, "RO": {"ro"},
	"ZA": {"en", "af"}, "TH": {"th"},
}

// First octets by regional registry.
var (
	octetsARIN    = []int{12, 13, 24, 38, 50, 52, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 96, 97, 98, 99, 104, 107, 108}
	octetsRIPE    = []int{2, 5, 31, 37, 46, 51, 62, 77, 78, 79, 80, 81, 82, 83, 84, 85, 86, 87, 88, 89, 90, 91, 92, 93, 94, 95, 109, 141, 144, 146, 176, 178, 185, 188, 193, 194, 195, 212, 213, 217}
	octetsAPNIC   = []int{1, 14, 27, 36, 39, 42, 43, 49, 58, 59, 60, 61, 101, 103, 106, 110, 111, 112, 113, 114, 115, 116, 117, 118, 119, 120, 121, 122, 123, 124, 125, 126, 133, 139, 140, 150, 153, 157, 163, 171, 175, 180, 182, 183, 202, 203, 210, 211, 218, 219, 220, 221, 222, 223}
	octetsLACNIC  = []int{138, 143, 168, 170, 177, 179, 181, 186, 187, 189, 191, 200, 201}
	octetsAFRINIC = []int{41, 102, 105, 154, 156, 196, 197}
)

var countryOctets = map[string][]int{
	"US": octetsARIN, "CA": octetsARIN,
	"GB": octetsRIPE, "DE": octetsRIPE, "FR": octetsRIPE, "IT": octetsRIPE, "ES": octetsRIPE,
	"NL": octetsRIPE, "SE": octetsRIPE, "PL": octetsRIPE, "UA": octetsRIPE, "RO": octetsRIPE,
	"RU": octetsRIPE, "TR": octetsRIPE,
	"IN": octetsAPNIC, "JP": octetsAPNIC, "KR": octetsAPNIC, "CN": octetsAPNIC, "AU": octetsAPNIC,
	"PH": octetsAPNIC, "ID": octetsAPNIC, "VN": octetsAPNIC, "TH": octetsAPNIC, "PK": octetsAPNIC,
	"BD": octetsAPNIC,
	"BR": octetsLACNIC, "MX": octetsLACNIC,
	"NG": octetsAFRINIC, "ZA": octetsAFRINIC, "EG": octetsAFRINIC,
}

// IP ring used to register fake and farmed accounts.
var ringIPs = []string{
	"91.185.32.12", "91.185.32.45", "91.185.32.78", "91.185.33.10", "91.185.33.55",
	"91.185.34.22", "91.185.35.67", "91.186.12.88", "91.186.13.101", "91.186.14.203",
	"95.165.28.45", "95.165.29.112", "95.165.30.78", "185.71.45.33", "185.71.46.90",
	"188.170.22.156", "188.170.23.77", "193.104.88.12", "194.58.12.34", "195.24.156.89",
}

var firstNames = []string{
	"James", "Mary", "Amit", "Priya", "Carlos", "Maria", "Hans", "Sophie",
	"Yuki", "Hana", "Wei", "Lin", "Ahmed", "Fatima", "Olga", "Ivan",
	"Kofi", "Ama", "Luis", "Ana", "Kim", "Thiago", "Fernanda", "Raj",
	"Sita", "Mohammed", "Aisha", "Pierre", "Claire", "Luca", "Giulia", "Sven",
	"Ingrid", "Jan", "Eva", "Oleg", "Natasha", "Chen", "Mei", "Kenji",
	"Sakura", "David", "Sarah", "Michael", "Emma", "Daniel", "Laura", "Robert",
	"Jennifer", "Andrew", "Elizabeth", "Kevin", "Rachel", "Brian", "Samantha", "Nicole",
}

var lastNames = []string{
	"Smith", "Kumar", "Silva", "Müller", "Tanaka", "Wang", "Ali", "Kim",
	"Garcia", "Johansson", "Nowak", "Petrov", "Brown", "Johnson", "Williams",
	"Okafor", "Santos", "Nguyen", "Lee", "Chen", "Andersen", "Dubois",
	"Rossi", "Fernandez", "Martinez", "Lopez", "Wilson", "Taylor", "Anderson",
	"Thomas", "Jackson", "White", "Harris", "Martin", "Moore", "Clark",
	"Walker", "Young", "King", "Wright", "Green", "Baker", "Hill", "Carter",
}

var headlines = []string{
	"Software Engineer", "Senior Software Engineer at a fintech startup",
	"Product Manager", "Data Scientist | Machine Learning", "Marketing Manager",
	"UX Designer", "Sales Director", "HR Business Partner", "Financial Analyst",
	"DevOps Engineer", "Student at State University", "Account Executive",
	"Operations Lead", "Registered Nurse", "Teacher", "Freelance Writer",
	"Mechanical Engineer", "Consultant", "Project Manager", "Customer Success Manager",
	"CEO at Northwind Labs", "Founder & CEO", "Co-Founder at Brightpath",
	"Chief Executive Officer", "Managing Partner at Crescent Ventures",
	"VP of Engineering", "CTO", "Open to work",
}

var summaries = []string{
	"Experienced professional with a passion for building great teams.",
	"I help companies grow through data-driven decisions.",
	"Engineer focused on distributed systems and reliability.",
	"Designer who cares about accessible, simple products.",
	"Always learning. Interested in tech, travel and coffee.",
	"Ten years in operations across retail and logistics.",
	"Building products people love.",
	"",
}

var locations = []string{
	"San Francisco, CA", "New York, NY", "London, UK", "Berlin, Germany",
	"Tokyo, Japan", "Mumbai, India", "São Paulo, Brazil", "Sydney, Australia",
	"Toronto, Canada", "Seoul, South Korea", "Paris, France", "Amsterdam, Netherlands",
	"Stockholm, Sweden", "Warsaw, Poland", "Mexico City, Mexico", "Lagos, Nigeria",
	"Moscow, Russia", "Shanghai, China", "Manila, Philippines", "Istanbul, Turkey",
	"Cairo, Egypt", "Rome, Italy", "Madrid, Spain", "Cape Town, South Africa",
	"Kyiv, Ukraine", "Bucharest, Romania", "Seattle, WA", "Austin, TX",
}

var emailDomains = []struct {
	domain string
	weight float64
}{
	{"gmail.com", 25}, {"outlook.com", 15}, {"yahoo.com", 12}, {"hotmail.com", 8},
	{"icloud.com", 6}, {"protonmail.com", 4}, {"mail.com", 3}, {"aol.com", 3},
	{"zoho.com", 2}, {"yandex.com", 2}, {"gmx.com", 2}, {"live.com", 2},
	{"msn.com", 1}, {"qq.com", 2}, {"163.com", 1}, {"btinternet.com", 3},
}

var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/17.2",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0.0.0 Mobile",
	"Mozilla/5.0 (Windows NT 10.0; WOW64; Trident/7.0; rv:11.0) like Gecko",
}

var nonBrowserUserAgents = []string{
	"LinkedInApp/9.1.590 (iPhone; iOS 17.2)",
	"LinkedInApp/4.1.940 (Android 14; Pixel 8)",
	"python-requests/2.31.0",
	"curl/8.4.0",
	"PostmanRuntime/7.35.0",
	"okhttp/4.12.0",
}

// Fishy profile content. Kept generic; only the shape matters downstream.
var (
	pharmacyHeadlines = []string{"Online Pharmacy Consultant", "Licensed Meds Supplier", "Wellness Products Distributor"}
	pharmacySummaries = []string{"Discreet delivery worldwide. Visit our store for offers.", "Best prices on prescriptions, no questions asked."}
	covertHeadlines   = []string{"Content Creator", "Model & Influencer", "Private Lifestyle Coach"}
	covertSummaries   = []string{"Exclusive content at my site, link in profile.", "DM for private collaborations."}
	farmingHeadlines  = []string{"Entrepreneur", "Business Owner", "Investor"}
	farmingSummaries  = []string{"Open to opportunities.", ""}
)
